package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "window_sections.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder(buildOptions(tc)...)
			ctx := Context{Store: "demo", Section: tc.Section}

			var result windowSettings
			err := decoder.Decode(ctx, tc.Input, &result)

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
				t.Fatalf("decoded section mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecoderRejectsNonPointer(t *testing.T) {
	var result windowSettings
	if err := NewDecoder().Decode(Context{}, map[string]any{}, result); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if err := NewDecoder().Decode(Context{}, map[string]any{}, (*windowSettings)(nil)); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for nil pointer, got %v", err)
	}
}

func TestDecoderLeavesPayloadUntouched(t *testing.T) {
	payload := map[string]any{"size": "3x4"}
	var result windowSettings
	if err := NewDecoder(WithPreHook(splitSizePreHook)).Decode(Context{Section: "window"}, payload, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["size"] != "3x4" {
		t.Fatalf("expected caller payload untouched, got %v", payload)
	}
}

func buildOptions(tc fixtureCase) []Option {
	var options []Option
	for _, name := range tc.Options {
		switch name {
		case "disallow_unknown":
			options = append(options, WithDisallowUnknownFields())
		case "use_number":
			options = append(options, WithUseNumber())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "split_size" {
			options = append(options, WithPreHook(splitSizePreHook))
		}
	}
	for _, name := range tc.PostHooks {
		if name == "default_title" {
			options = append(options, WithPostHook(defaultTitlePostHook))
		}
	}
	return options
}

func splitSizePreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["size"].(string)
	if !ok {
		return payload, nil
	}
	w, h, found := strings.Cut(value, "x")
	if !found {
		return nil, fmt.Errorf("invalid size %q", value)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return nil, err
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return nil, err
	}
	delete(payload, "size")
	payload["width"] = width
	payload["height"] = height
	return payload, nil
}

func defaultTitlePostHook(ctx Context, dst any) error {
	settings, ok := dst.(*windowSettings)
	if !ok {
		return errors.New("unexpected destination")
	}
	if settings.Title == "" {
		settings.Title = ctx.String()
	}
	return nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string         `json:"name"`
	Section   string         `json:"section"`
	Input     map[string]any `json:"input"`
	Expect    windowSettings `json:"expect"`
	ExpectErr string         `json:"expectErr"`
	PreHooks  []string       `json:"preHooks"`
	PostHooks []string       `json:"postHooks"`
	Options   []string       `json:"options"`
}

type windowSettings struct {
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Title     string   `json:"title"`
	Maximized bool     `json:"maximized"`
	Tags      []string `json:"tags"`
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
