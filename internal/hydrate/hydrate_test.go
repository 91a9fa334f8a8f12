package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeDocumentFromFixtures(t *testing.T) {
	fx := loadFixture(t, "documents.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[record](buildOptions(tc)...)

			result, err := decoder.DecodeDocument("fixture", tc.Document)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded records mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecodeDocumentRejectsBadJSON(t *testing.T) {
	_, err := NewDecoder[record]().DecodeDocument("broken", []byte(`[{"title":`))
	if err == nil || !strings.Contains(err.Error(), "parse broken") {
		t.Fatalf("expected parse error, got %v", err)
	}
	_, err = NewDecoder[record]().DecodeDocument("scalar", []byte(`"x"`))
	if !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestDecodeHooksSeeContext(t *testing.T) {
	var seen []Context
	decoder := NewDecoder[record](
		WithPostHook[record](func(ctx Context, r *record) error {
			seen = append(seen, ctx)
			if r.Title == "" {
				return errors.New("title required")
			}
			return nil
		}),
	)

	_, err := decoder.DecodeDocument("albums.json", []byte(`[null, {"title": "A"}, {"artist": "B"}]`))
	if err == nil || !strings.Contains(err.Error(), "albums.json[2]") {
		t.Fatalf("expected post-hook error naming the record, got %v", err)
	}
	if len(seen) != 2 || seen[0].Index != 1 || seen[1].Index != 2 {
		t.Fatalf("unexpected hook contexts %+v", seen)
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"title": "x"}
	decoder := NewDecoder[record](WithPreHook[record](func(_ Context, payload map[string]any) (map[string]any, error) {
		payload["title"] = "changed"
		return payload, nil
	}))
	got, err := decoder.Decode(Context{Source: "inline"}, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "changed" || input["title"] != "x" {
		t.Fatalf("expected hook on a copy, got %q and input %v", got.Title, input)
	}
	if _, err := decoder.Decode(Context{Source: "inline"}, nil); err == nil {
		t.Fatalf("expected nil record to fail")
	}
}

func TestCustomDecoder(t *testing.T) {
	decoder := NewDecoder[record](WithCustomDecoder[record](func(ctx Context, payload map[string]any) (record, error) {
		title, _ := payload["name"].(string)
		if title == "" {
			return record{}, fmt.Errorf("missing name in %s", ctx.Source)
		}
		return record{Title: strings.ToUpper(title)}, nil
	}))
	got, err := decoder.DecodeDocument("custom", []byte(`{"name": "kind of blue"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Title != "KIND OF BLUE" {
		t.Fatalf("unexpected custom result %+v", got)
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[record] {
	var options []DecoderOption[record]
	for _, name := range tc.Options {
		if name == "disallow_unknown" {
			options = append(options, WithDisallowUnknownFields[record]())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "year_to_string" {
			options = append(options, WithPreHook[record](yearToString))
		}
	}
	return options
}

func yearToString(_ Context, payload map[string]any) (map[string]any, error) {
	if year, ok := payload["releaseYear"].(json.Number); ok {
		payload["releaseYear"] = year.String()
	}
	return payload, nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string          `json:"name"`
	Document  json.RawMessage `json:"document"`
	Expect    []record        `json:"expect"`
	ExpectErr string          `json:"expectErr"`
	PreHooks  []string        `json:"preHooks"`
	Options   []string        `json:"options"`
}

type record struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	ReleaseYear string `json:"releaseYear,omitempty"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}
