package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	sceneCmd = &cobra.Command{
		Use:   "scene",
		Short: "Inspect and edit the scene contract attached to a document",
	}

	sceneShowCmd = &cobra.Command{
		Use:   "show [document-id]",
		Short: "Print a document's scene: title, summary, and required beats",
		Args:  cobra.ExactArgs(1),
		Run:   runSceneShow,
	}

	sceneTitle   string
	sceneSummary string
	sceneBeats   []string

	sceneSetCmd = &cobra.Command{
		Use:   "set [document-id]",
		Short: "Update a document's scene; unset flags keep their current values",
		Long: `Updates the scene contract for a document. Blocks named in --beats are
required outline beats: delete ops targeting them are blocked unless the
batch is applied with --override.`,
		Args: cobra.ExactArgs(1),
		Run:  runSceneSet,
	}
)

func init() {
	sceneSetCmd.Flags().StringVar(&sceneTitle, "title", "", "scene title")
	sceneSetCmd.Flags().StringVar(&sceneSummary, "summary", "", "scene summary")
	sceneSetCmd.Flags().StringSliceVar(&sceneBeats, "beats", nil, "block ids that the outline requires (comma separated)")

	rootCmd.AddCommand(sceneCmd)
	sceneCmd.AddCommand(sceneShowCmd)
	sceneCmd.AddCommand(sceneSetCmd)
}

func runSceneShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	scene, err := rt.service.GetScene(ctx, args[0])
	if err != nil {
		fail(err)
	}
	printJSON(scene)
}

func runSceneSet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	scene, err := rt.service.GetScene(ctx, args[0])
	if err != nil {
		fail(err)
	}
	scene.DocumentID = args[0]
	if cmd.Flags().Changed("title") {
		scene.Title = sceneTitle
	}
	if cmd.Flags().Changed("summary") {
		scene.Summary = sceneSummary
	}
	if cmd.Flags().Changed("beats") {
		scene.RequiredBeats = sceneBeats
	}

	updated, err := rt.service.SetScene(ctx, scene)
	if err != nil {
		fail(err)
	}
	printJSON(updated)
}
