package stream

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/expr"
)

const people = "name,age,city\nada,36,London\ngrace,45,Arlington\n"

func TestText_CSVFields(t *testing.T) {
	rows := FromString(people).CSV()

	if diff := cmp.Diff([]any{"ada", "grace"}, toList(t, rows.Get("name"))); diff != "" {
		t.Errorf("name column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{nil, nil}, toList(t, rows.Get("zip"))); diff != "" {
		t.Errorf("missing column mismatch (-want +got):\n%s", diff)
	}

	adults := rows.Filter(expr.It().Attr("city").Eq("London")).Get("age")
	if diff := cmp.Diff([]any{"36"}, toList(t, adults)); diff != "" {
		t.Errorf("filtered column mismatch (-want +got):\n%s", diff)
	}
}

func TestText_CSVRecord(t *testing.T) {
	recs, err := CollectAs[*Record](t.Context(), FromString(people).CSV())
	if err != nil {
		t.Fatalf("CollectAs: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	want := map[string]string{"name": "grace", "age": "45", "city": "Arlington"}
	if diff := cmp.Diff(want, recs[1].Map()); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "age", "city"}, recs[0].Fields()); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
	if _, ok := recs[0].Get("zip"); ok {
		t.Error("Get should report a missing column")
	}
}

func TestText_CSVHeaderOnly(t *testing.T) {
	n, err := FromString("a,b\n").CSV().Count(t.Context())
	if err != nil || n != 0 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestText_CSVMalformed(t *testing.T) {
	_, err := FromString("a,b\n1,2,3\n").CSV().ToList(t.Context())
	if !errors.IsCode(err, errors.ErrCodeSourceRead) {
		t.Errorf("expected SOURCE_READ, got %v", err)
	}
}

func TestText_CSVAcrossChunks(t *testing.T) {
	rows := FromBytes([]byte(people), WithChunkSize(4)).Chunk(0).Utf8().CSV().Get("city")
	if diff := cmp.Diff([]any{"London", "Arlington"}, toList(t, rows)); diff != "" {
		t.Errorf("city column mismatch (-want +got):\n%s", diff)
	}
}

func TestText_Lines(t *testing.T) {
	got := toList(t, FromString("a\r\nb\n\nc").Lines())
	if diff := cmp.Diff([]any{"a", "b", "", "c"}, got); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
	if n, err := FromString("").Lines().Count(t.Context()); err != nil || n != 0 {
		t.Errorf("empty text: Count = %d, %v", n, err)
	}
}

func TestText_EncodeUnrepresentable(t *testing.T) {
	if _, err := FromString("日本").Encode("latin1").ToBytes(t.Context()); err == nil {
		t.Error("expected an error for characters latin1 cannot encode")
	}
}

func TestText_ToList(t *testing.T) {
	got, err := FromBytes([]byte("abcdef"), WithChunkSize(4)).Chunk(0).Utf8().ToList(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"abcd", "ef"}, got); diff != "" {
		t.Errorf("ToList mismatch (-want +got):\n%s", diff)
	}
}
