package bot

import (
	"errors"
	"testing"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		data    string
		want    Action
		ok      bool
		wantErr bool
	}{
		{data: "desc_53065", want: Action{Verb: VerbDetails, RecipeID: "53065"}, ok: true},
		{data: "fav_53065", want: Action{Verb: VerbFavorite, RecipeID: "53065"}, ok: true},
		{data: "favshow_52771", want: Action{Verb: VerbFavShow, RecipeID: "52771"}, ok: true},
		{data: "rate_53065_5", want: Action{Verb: VerbRate, RecipeID: "53065", Stars: 5}, ok: true},
		{data: "rate_53065_1", want: Action{Verb: VerbRate, RecipeID: "53065", Stars: 1}, ok: true},
		{data: "rate_53065_0", ok: true, wantErr: true},
		{data: "rate_53065_6", ok: true, wantErr: true},
		{data: "rate_53065_x", ok: true, wantErr: true},
		{data: "rate_53065", ok: true, wantErr: true},
		{data: "share_53065"},
		{data: "desc_"},
		{data: "desc"},
		{data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok, err := ParseAction(tt.data)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidRating) {
					t.Errorf("error = %v, want ErrInvalidRating", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestActionPayloadRoundTrip(t *testing.T) {
	for _, a := range []Action{
		{Verb: VerbDetails, RecipeID: "1"},
		{Verb: VerbFavShow, RecipeID: "2"},
		{Verb: VerbRate, RecipeID: "3", Stars: 4},
	} {
		got, ok, err := ParseAction(a.Payload())
		if !ok || err != nil || got != a {
			t.Errorf("ParseAction(%q) = %+v, %v, %v", a.Payload(), got, ok, err)
		}
	}
}
