package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cliplab/cliplab-agent/internal/history"
)

const maxPreviewBodyBytes = 32 << 20 // 32 MB frame upload ceiling

// decodeAction maps a wire action onto its ledger constructor, validating
// that the payload matching the kind is present.
func decodeAction(req ActionRequest) (history.Action, error) {
	var zero history.Action
	switch history.Kind(req.Kind) {
	case history.KindTrim:
		if req.Trim == nil {
			return zero, fmt.Errorf("trim payload required")
		}
		return history.NewTrim(req.Trim.Start, req.Trim.End), nil
	case history.KindCrop:
		if req.Crop == nil {
			return zero, fmt.Errorf("crop payload required")
		}
		return history.NewCrop(*req.Crop), nil
	case history.KindSplit:
		return history.NewSplit(req.SplitPoints), nil
	case history.KindSetFilters:
		if req.Filters == nil {
			return zero, fmt.Errorf("filters payload required")
		}
		return history.NewSetFilters(*req.Filters), nil
	case history.KindAddOverlay:
		if req.Overlay == nil {
			return zero, fmt.Errorf("overlay payload required")
		}
		return history.NewAddOverlay(*req.Overlay), nil
	case history.KindRemoveOverlay:
		if req.OverlayID == "" {
			return zero, fmt.Errorf("overlay_id required")
		}
		return history.NewRemoveOverlay(req.OverlayID), nil
	case history.KindAddTransition:
		if req.Transition == nil {
			return zero, fmt.Errorf("transition payload required")
		}
		return history.NewAddTransition(*req.Transition), nil
	case history.KindRemoveTransition:
		if req.TransitionID == "" {
			return zero, fmt.Errorf("transition_id required")
		}
		return history.NewRemoveTransition(req.TransitionID), nil
	case history.KindSetSpeed:
		return history.NewSetSpeed(req.Speed), nil
	case history.KindSetVolume:
		if req.Volume == nil {
			return zero, fmt.Errorf("volume payload required")
		}
		return history.NewSetVolume(*req.Volume), nil
	default:
		return zero, fmt.Errorf("unknown action kind %q", req.Kind)
	}
}

func applyActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var req ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		action, err := decodeAction(req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		state, err := cfg.Studio.Apply(projectID, action)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, UndoRedoResponse{Moved: true, State: state})
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, moved, err := cfg.Studio.Undo(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, UndoRedoResponse{Moved: moved, State: state})
	}
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, moved, err := cfg.Studio.Redo(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, UndoRedoResponse{Moved: moved, State: state})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		state, err := cfg.Studio.State(projectID)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		actions, cursor, _ := cfg.Studio.History(projectID)
		WriteJSON(w, http.StatusOK, StateResponse{State: state, Cursor: cursor, Actions: len(actions)})
	}
}

func historyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actions, cursor, err := cfg.Studio.History(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, HistoryResponse{Actions: actions, Cursor: cursor})
	}
}

// previewHandler grades one uploaded frame through the project's current
// filter state. The body is the raw image; max_w/max_h bound the result.
func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		maxW := queryInt(r, "max_w", 1280)
		maxH := queryInt(r, "max_h", 720)

		frame, err := io.ReadAll(io.LimitReader(r.Body, maxPreviewBodyBytes))
		if err != nil || len(frame) == 0 {
			WriteError(w, http.StatusBadRequest, "frame body required", "BAD_REQUEST")
			return
		}

		out, err := cfg.Studio.Preview(projectID, frame, maxW, maxH)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(out)))
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
