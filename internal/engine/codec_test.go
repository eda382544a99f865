package engine

import (
	"strings"
	"testing"
)

func validBatchJSON() string {
	return `{
		"type": "doc_edit_batch",
		"docId": "doc1",
		"baseVersion": "v-abc",
		"ops": [
			{"type": "replace", "blockId": "b1", "range": [0, 4], "text": "Then"},
			{"type": "move_block", "blockId": "b2", "afterBlockId": "b1"},
			{"type": "annotate", "blockId": "b3", "note": "check tense"}
		],
		"simulate": true,
		"notes": "tighten the opening"
	}`
}

func TestDecodeBatchValid(t *testing.T) {
	batch, err := DecodeBatch([]byte(validBatchJSON()))
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	if batch.DocID != "doc1" || batch.BaseVersion != "v-abc" || !batch.Simulate {
		t.Fatalf("envelope = %+v", batch)
	}
	if len(batch.Ops) != 3 || batch.Ops[0].Kind != OpReplace || batch.Ops[1].AfterBlockID != "b1" {
		t.Fatalf("ops = %+v", batch.Ops)
	}
}

func TestDecodeBatchRejections(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			"wrong envelope type",
			`{"type": "something_else", "docId": "d", "baseVersion": "v", "ops": [{"type": "delete_block", "blockId": "b"}]}`,
			"batch type",
		},
		{
			"unknown envelope field",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "priority": 3, "ops": [{"type": "delete_block", "blockId": "b"}]}`,
			"unknown field",
		},
		{
			"missing docId",
			`{"type": "doc_edit_batch", "baseVersion": "v", "ops": [{"type": "delete_block", "blockId": "b"}]}`,
			"docId",
		},
		{
			"missing baseVersion",
			`{"type": "doc_edit_batch", "docId": "d", "ops": [{"type": "delete_block", "blockId": "b"}]}`,
			"baseVersion",
		},
		{
			"empty ops",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": []}`,
			"no ops",
		},
		{
			"unknown op type",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "transmogrify", "blockId": "b"}]}`,
			"unsupported op type",
		},
		{
			"op without blockId",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "delete_block"}]}`,
			"blockId",
		},
		{
			"replace without range",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "replace", "blockId": "b", "text": "x"}]}`,
			"range",
		},
		{
			"replace with one-element range",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "replace", "blockId": "b", "range": [4], "text": "x"}]}`,
			"range",
		},
		{
			"move without anchor",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "move_block", "blockId": "b"}]}`,
			"afterBlockId",
		},
		{
			"annotate without note",
			`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [{"type": "annotate", "blockId": "b"}]}`,
			"note",
		},
	}
	for _, tc := range cases {
		_, err := DecodeBatch([]byte(tc.json))
		if err == nil {
			t.Fatalf("%s: decode accepted invalid input", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestDecodeBatchOpBudget(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"type": "doc_edit_batch", "docId": "d", "baseVersion": "v", "ops": [`)
	for i := 0; i <= maxBatchOps; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"type": "delete_block", "blockId": "b"}`)
	}
	b.WriteString(`]}`)

	_, err := DecodeBatch([]byte(b.String()))
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("oversized batch not rejected: %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := DocEditBatch{
		DocID:       "doc1",
		BaseVersion: "v-abc",
		Ops: []EditOp{
			{Kind: OpInsertAfter, BlockID: "b1", NewBlockID: "b2", Text: "New paragraph."},
		},
		Notes: "draft",
	}
	data, err := EncodeBatch(in)
	if err != nil {
		t.Fatalf("EncodeBatch() error = %v", err)
	}
	out, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	if out.Type != BatchType {
		t.Fatalf("encode did not fill the envelope type, got %q", out.Type)
	}
	if out.Ops[0].NewBlockID != "b2" || out.Notes != "draft" {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}
