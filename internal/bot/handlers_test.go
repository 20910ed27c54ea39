package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"memer/internal/config"
	"memer/internal/model"
	"memer/internal/postcache"
)

func TestParseRegisterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    bool
		wantErr bool
	}{
		{name: "no flag", args: "", want: false},
		{name: "nsfw", args: "nsfw", want: true},
		{name: "nsfw uppercase", args: "NSFW", want: true},
		{name: "on", args: " on ", want: true},
		{name: "sfw", args: "sfw", want: false},
		{name: "off", args: "off", want: false},
		{name: "unknown flag", args: "maybe", wantErr: true},
		{name: "too many args", args: "nsfw sfw", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegisterArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePostArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    string
		wantErr bool
	}{
		{name: "empty", args: "", want: ""},
		{name: "group", args: "cats", want: "cats"},
		{name: "group with whitespace", args: "  dogs ", want: "dogs"},
		{name: "two groups", args: "cats dogs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePostArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data       string
		wantAction string
		wantArg    string
		wantOK     bool
	}{
		{data: "post:cats", wantAction: "post", wantArg: "cats", wantOK: true},
		{data: "post:", wantAction: "post", wantArg: "", wantOK: true},
		{data: "nocolon", wantOK: false},
		{data: ":cats", wantOK: false},
		{data: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, arg, ok := ParseCallback(tt.data)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantAction, action); diff != "" {
				t.Errorf("action mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantArg, arg); diff != "" {
				t.Errorf("arg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatItem(t *testing.T) {
	tests := []struct {
		name string
		item model.Item
		want string
	}{
		{
			name: "link post",
			item: model.Item{Title: "Good boy", Content: "https://i.redd.it/a.jpg", Source: "rarepuppers"},
			want: "[r/rarepuppers]\n\nGood boy\n\nhttps://i.redd.it/a.jpg",
		},
		{
			name: "sensitive",
			item: model.Item{Title: "Spicy", Content: "https://i.redd.it/b.jpg", Source: "memes", Sensitive: true},
			want: "[r/memes] NSFW\n\nSpicy\n\nhttps://i.redd.it/b.jpg",
		},
		{
			name: "no source no content",
			item: model.Item{Title: "Just a title"},
			want: "Just a title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatItem(tt.item)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatRetry(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{wait: 0, want: "Slow down! Try again in 1s."},
		{wait: 200 * time.Millisecond, want: "Slow down! Try again in 1s."},
		{wait: 6 * time.Second, want: "Slow down! Try again in 6s."},
		{wait: 6*time.Second + time.Millisecond, want: "Slow down! Try again in 7s."},
	}

	for _, tt := range tests {
		t.Run(tt.wait.String(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatRetry(tt.wait)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatGroups(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if diff := cmp.Diff("No groups configured.", FormatGroups(nil)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("sorted groups", func(t *testing.T) {
		src := config.Sources{
			"dogs": {"rarepuppers", "dogpictures"},
			"cats": {"aww"},
		}
		got := FormatGroups(src)
		cats := strings.Index(got, "cats: aww")
		dogs := strings.Index(got, "dogs: rarepuppers, dogpictures")
		if cats < 0 || dogs < 0 {
			t.Fatalf("groups missing, got:\n%s", got)
		}
		if cats > dogs {
			t.Errorf("groups not sorted, got:\n%s", got)
		}
	})
}

func TestFormatReport(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		r := postcache.Report{Succeeded: []string{"aww", "memes"}, Items: 150, Elapsed: 1500 * time.Millisecond}
		want := "Refreshed 2 sources in 1.5s, 150 posts."
		if diff := cmp.Diff(want, FormatReport(r)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("with failures", func(t *testing.T) {
		r := postcache.Report{Succeeded: []string{"aww"}, Failed: []string{"gone", "private"}, Items: 10}
		got := FormatReport(r)
		if !strings.Contains(got, "Failed: gone, private") {
			t.Errorf("failures missing, got:\n%s", got)
		}
	})
}
