package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/processor"
	"github.com/mauv0809/naseliga/internal/pubsub"
	slackfmt "github.com/mauv0809/naseliga/internal/slack"
	"github.com/mauv0809/naseliga/internal/standings"
	"github.com/slack-go/slack"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// StatsHandler returns the lifetime counters kept in the database.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := s.Counters.GetAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.League.ListPlayers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) GetPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		player, err := s.League.GetPlayer(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)
	}
}

func (s *Server) CreatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		player, err := s.League.CreatePlayer(r.Context(), req.Name, req.Country)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, player)
	}
}

func (s *Server) UpdatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req playerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		player, err := s.League.UpdatePlayer(r.Context(), league.Player{ID: id, Name: req.Name, Country: req.Country})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)
	}
}

func (s *Server) DeletePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.League.DeletePlayer(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PlayerRatingHandler returns a player's cumulative rating, before the match
// given by ?before= or after every ranked match.
func (s *Server) PlayerRatingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		before, err := optionalID(r, "before")
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := s.League.GetPlayer(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		rating, err := s.Ledger.PlayerRating(r.Context(), id, before)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ratingResponse{PlayerID: id, BeforeMatchID: before, Rating: rating})
	}
}

func (s *Server) ListEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.League.ListEvents(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func (s *Server) ListUnrankedEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.League.ListUnrankedEvents(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func (s *Server) GetEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		event, err := s.League.GetEvent(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}
}

func (s *Server) CreateEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, err)
			return
		}
		event, err := s.League.CreateEvent(r.Context(), req.Title, date)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, event)
	}
}

func (s *Server) DeleteEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.League.DeleteEvent(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateMatchHandler records a match and announces it. Ranking happens later,
// when the backfill job runs.
func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req league.NewMatch
		if !decodeJSON(w, r, &req) {
			return
		}
		match, err := s.League.CreateMatch(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.pubsub.SendMessage(pubsub.EventMatchRecorded, pubsub.MatchRecorded{MatchID: match.ID, EventID: match.EventID}); err != nil {
			log.FromContext(r.Context()).Error("Failed to publish recorded match", "error", err, "matchID", match.ID)
		}
		writeJSON(w, http.StatusCreated, match)
	}
}

func (s *Server) DeleteMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.League.DeleteMatch(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LeaderboardHandler serves GET /leaderboard?as_of=<eventID>&all=true.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, err := optionalID(r, "as_of")
		if err != nil {
			writeError(w, err)
			return
		}
		q := standings.Query{AsOfEventID: asOf, IncludeInactive: r.URL.Query().Get("all") == "true"}
		entries, err := s.Standings.Get(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// RecomputeHandler runs the backfill job for privileged callers.
// ?dry_run=true computes without writing, ?rebuild=true re-ranks every match.
func (s *Server) RecomputeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := processor.Options{
			DryRun:  isDryRunFromContext(r),
			Rebuild: r.URL.Query().Get("rebuild") == "true",
		}
		summary, err := s.Processor.Recompute(r.Context(), isPrivilegedFromContext(r), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// PushRecomputeHandler receives Pub/Sub push deliveries of recorded matches
// and brings the ledger up to date.
func (s *Server) PushRecomputeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tokenMatches(r.URL.Query().Get("token"), s.Cfg.PushToken) {
			log.FromContext(r.Context()).Warn("Rejected push delivery with a bad token")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid push token"})
			return
		}
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.FromContext(r.Context()).Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		rawData, err := pubsub.DecodePush(bodyBytes)
		if err != nil {
			log.FromContext(r.Context()).Error("Failed to decode push delivery", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		var recorded pubsub.MatchRecorded
		if err := s.pubsub.ProcessMessage(rawData, &recorded); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid message payload"})
			return
		}
		log.FromContext(r.Context()).Info("Received recorded match", "matchID", recorded.MatchID, "eventID", recorded.EventID)

		// Non-2xx makes Pub/Sub redeliver, which is what a failed run needs.
		if _, err := s.Processor.Recompute(r.Context(), true, processor.Options{DryRun: isDryRunFromContext(r)}); err != nil {
			writeError(w, err)
			return
		}
		w.Write([]byte("OK"))
	}
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack command.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifier, err := slack.NewSecretsVerifier(r.Header, s.Cfg.Slack.SigningSecret)
		if err != nil {
			log.FromContext(r.Context()).Warn("Rejected Slack command without a valid signature header", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(io.TeeReader(r.Body, &verifier))
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.FromContext(r.Context()).Warn("Rejected Slack command with a bad signature", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		log.FromContext(r.Context()).Info("Received leaderboard command", "user", cmd.UserName, "text", cmd.Text)
		q, err := slackfmt.ParseLeaderboardCommand(cmd.Text)
		if err != nil {
			respondWithSlackMsg(w, slackfmt.FormatError(err.Error()))
			return
		}
		entries, err := s.Standings.Get(r.Context(), q)
		switch {
		case errors.Is(err, league.ErrNotFound):
			respondWithSlackMsg(w, slackfmt.FormatError(fmt.Sprintf("Event #%d does not exist.", q.AsOfEventID)))
			return
		case err != nil:
			log.FromContext(r.Context()).Error("Failed to compute leaderboard", "error", err)
			http.Error(w, "Failed to compute leaderboard", http.StatusInternalServerError)
			return
		}
		respondWithSlackMsg(w, slackfmt.FormatLeaderboard(entries, q))
	}
}

func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, league.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, league.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, league.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, processor.ErrUnauthorized):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// optionalID reads a positive id query parameter; absent means zero.
func optionalID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive id", league.ErrInvalid, name)
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is neither YYYY-MM-DD nor RFC 3339", league.ErrInvalid, raw)
	}
	return t, nil
}
