package recommendation

import (
	"net/http"

	apperrors "github.com/vibecheck/api/internal/errors"
	"github.com/vibecheck/api/internal/services/artist"
)

// Result is the prompt recommendation response body. Kind is empty on success and
// only drives the HTTP status.
type Result struct {
	Success  bool                `json:"success"`
	Genre    string              `json:"genre,omitempty"`
	Artists  []artist.Artist     `json:"artists,omitempty"`
	Selected *artist.Artist      `json:"selected,omitempty"`
	Error    string              `json:"error,omitempty"`
	Kind     apperrors.ErrorType `json:"-"`
}

// StatusCode maps the result to an HTTP status.
func (r Result) StatusCode() int {
	return statusFor(r.Kind)
}

// SeedResult is the seed-track recommendation response body.
type SeedResult struct {
	Success     bool                `json:"success"`
	Songs       []artist.Artist     `json:"songs,omitempty"`
	SeedSongID  string              `json:"seedSongId"`
	Genre       string              `json:"genre,omitempty"`
	ArtistBased bool                `json:"artistBased,omitempty"`
	Error       string              `json:"error,omitempty"`
	Kind        apperrors.ErrorType `json:"-"`
}

func (r SeedResult) StatusCode() int {
	return statusFor(r.Kind)
}

func statusFor(kind apperrors.ErrorType) int {
	switch kind {
	case "":
		return http.StatusOK
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeClassificationMiss, apperrors.ErrorTypeNoMatches:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func failure(err *apperrors.AppError) Result {
	return Result{Success: false, Error: err.Message, Kind: err.Type}
}

func seedFailure(songID string, err *apperrors.AppError) SeedResult {
	return SeedResult{Success: false, SeedSongID: songID, Error: err.Message, Kind: err.Type}
}
