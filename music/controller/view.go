package controller

import "github.com/liuran001/MusicPreview-Go/music/catalog"

// Mode is the screen currently shown.
type Mode string

const (
	ModeList   Mode = "list"
	ModeDetail Mode = "detail"
)

// PlaybackStatus is a state of the playback machine.
type PlaybackStatus int

const (
	StatusIdle PlaybackStatus = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusFailed
)

var statusNames = [...]string{"idle", "loading", "playing", "paused", "failed"}

func (s PlaybackStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

func (s PlaybackStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlaybackState mirrors the audio session.
// Without a handle IsPlaying is false and position and duration are zero.
type PlaybackState struct {
	Status         PlaybackStatus `json:"status"`
	IsPlaying      bool           `json:"is_playing"`
	IsLoading      bool           `json:"is_loading"`
	LoadProgress   int            `json:"load_progress"`
	PositionMillis int64          `json:"position_ms"`
	DurationMillis int64          `json:"duration_ms"`
	HasHandle      bool           `json:"has_handle"`
	Failure        *Result        `json:"failure,omitempty"`
}

// ViewState is everything the screen renders.
type ViewState struct {
	Query         string               `json:"query"`
	Results       []catalog.Track      `json:"results"`
	Selected      *catalog.TrackDetail `json:"selected,omitempty"`
	Searching     bool                 `json:"searching"`
	LoadingDetail bool                 `json:"loading_detail"`
	Playback      PlaybackState        `json:"playback"`
	LastResult    Result               `json:"last_result"`
}

// Mode derives the screen from the selection.
func (v ViewState) Mode() Mode {
	if v.Selected != nil {
		return ModeDetail
	}
	return ModeList
}

func (v ViewState) clone() ViewState {
	out := v
	if v.Results != nil {
		out.Results = append([]catalog.Track(nil), v.Results...)
	}
	if v.Selected != nil {
		sel := *v.Selected
		out.Selected = &sel
	}
	if v.Playback.Failure != nil {
		failure := *v.Playback.Failure
		out.Playback.Failure = &failure
	}
	return out
}
