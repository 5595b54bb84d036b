package deezer

// apiError is the envelope Deezer returns with HTTP 200 when a call fails.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

const (
	errCodeQuota       = 4
	errCodeServiceBusy = 700
	errCodeDataMissing = 800
)

type errorEnvelope struct {
	Error *apiError `json:"error,omitempty"`
}

type artistData struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PictureBig string `json:"picture_big"`
}

type albumData struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	CoverBig string `json:"cover_big"`
}

// TrackData is a track object as returned by both search and track endpoints.
// Search rows carry a subset of the fields.
type TrackData struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Duration int        `json:"duration"` // in seconds
	Preview  string     `json:"preview"`
	Artist   artistData `json:"artist"`
	Album    albumData  `json:"album"`
}

type trackResponse struct {
	errorEnvelope
	TrackData
}

type searchResponse struct {
	errorEnvelope
	Data  []TrackData `json:"data"`
	Total int         `json:"total"`
}
