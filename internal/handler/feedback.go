package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// feedbackCSVHeaders is the first row of every CSV feedback report.
var feedbackCSVHeaders = []string{
	"trip_id", "trip_title", "trip_date", "ended",
	"participants", "reviews", "average_rating", "karma_earned",
}

// FeedbackRow is the JSON shape of one report row.
type FeedbackRow struct {
	TripID           uuid.UUID          `json:"trip_id"`
	TripTitle        string             `json:"trip_title"`
	TripDate         openapi_types.Date `json:"trip_date"`
	Ended            bool               `json:"ended"`
	ParticipantCount int                `json:"participant_count"`
	ReviewCount      int                `json:"review_count"`
	AverageRating    float64            `json:"average_rating"`
	KarmaEarned      int                `json:"karma_earned"`
}

// GetFeedback handles GET /me/feedback: one row per trip the caller hosted.
// ?format=csv returns a CSV attachment; anything else returns JSON.
func (s *Server) GetFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var format *string
	if !queryParam(w, r, "format", &format) {
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		requestError(w, "format must be csv or json")
		return
	}

	rows, err := s.Feedback.HostReport(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		writeFeedbackCSV(w, rows)
		return
	}
	out := make([]FeedbackRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, feedbackRowToResponse(row))
	}
	s.respond(w, r, http.StatusOK, map[string][]FeedbackRow{"data": out})
}

// writeFeedbackCSV buffers the whole report so a partial CSV is never sent.
func writeFeedbackCSV(w http.ResponseWriter, rows []domain.FeedbackRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(feedbackCSVHeaders)
	for _, row := range rows {
		_ = cw.Write(feedbackRowToCSVRecord(row))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="feedback.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func feedbackRowToResponse(r domain.FeedbackRow) FeedbackRow {
	date, _ := time.Parse(domain.DateFormat, r.TripDate)
	return FeedbackRow{
		TripID:           r.TripID,
		TripTitle:        r.TripTitle,
		TripDate:         openapi_types.Date{Time: date},
		Ended:            r.Ended,
		ParticipantCount: r.ParticipantCount,
		ReviewCount:      r.ReviewCount,
		AverageRating:    r.AverageRating,
		KarmaEarned:      r.KarmaEarned,
	}
}

// feedbackRowToCSVRecord flattens a row. Averages keep one decimal.
func feedbackRowToCSVRecord(r domain.FeedbackRow) []string {
	return []string{
		r.TripID.String(),
		r.TripTitle,
		r.TripDate,
		strconv.FormatBool(r.Ended),
		strconv.Itoa(r.ParticipantCount),
		strconv.Itoa(r.ReviewCount),
		strconv.FormatFloat(r.AverageRating, 'f', 1, 64),
		strconv.Itoa(r.KarmaEarned),
	}
}
