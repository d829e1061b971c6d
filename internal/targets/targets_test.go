package targets

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStaticResolve(t *testing.T) {
	list := Static{
		{Title: "Editor", Kind: KindWindow, ID: 0},
		{Title: "Display 1", Kind: KindMonitor, ID: 0, Width: 1920, Height: 1080},
		{Title: "Terminal", Kind: KindWindow, ID: 4242},
	}

	cases := []struct {
		id       int
		wantKind Kind
		wantErr  error
	}{
		{0, KindMonitor, nil},
		{4242, KindWindow, nil},
		{7, "", ErrUnknownTarget},
	}
	for _, tc := range cases {
		got, err := list.Resolve(tc.id)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("Resolve(%d) err = %v, want %v", tc.id, err, tc.wantErr)
		}
		if got.Kind != tc.wantKind {
			t.Errorf("Resolve(%d) kind = %q, want %q", tc.id, got.Kind, tc.wantKind)
		}
	}
}

func TestStaticTargetsCopies(t *testing.T) {
	list := Static{{Title: "A", Kind: KindMonitor}}
	got, _ := list.Targets()
	got[0].Title = "changed"
	if list[0].Title != "A" {
		t.Error("Targets exposes the underlying slice")
	}
}

func TestTargetJSON(t *testing.T) {
	b, err := json.Marshal(Target{Title: "Term", Kind: KindWindow, ID: 12})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"title":"Term","type":"window","id":12}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}
