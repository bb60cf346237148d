package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"metaremote/internal/history"
	"metaremote/internal/inference"
	"metaremote/internal/library"
	"metaremote/internal/tags"
	"metaremote/pkg/audio"
)

const serverVersion = "1.0.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "metaremote",
		"version":   serverVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	folders, err := s.lib.Tree(mux.Vars(r)["path"])
	if err != nil {
		s.libError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": folders})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.lib.Files(mux.Vars(r)["path"])
	if err != nil {
		s.libError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleReadMetadata(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]
	abs, err := s.lib.Resolve(rel)
	if err != nil {
		s.libError(w, err)
		return
	}

	info, err := os.Stat(abs)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	fields, err := tags.ReadFields(abs)
	if err != nil {
		s.logger.Error("Failed to read tags from %s: %v", rel, err)
		writeError(w, http.StatusUnprocessableEntity, "failed to read metadata")
		return
	}

	resp := map[string]any{
		"path":   s.lib.Rel(abs),
		"fields": fields,
		"size":   info.Size(),
	}
	if art, err := tags.ReadArtwork(abs); err == nil && len(art) > 0 {
		resp["art"] = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(art)
	}

	writeJSON(w, http.StatusOK, resp)
}

// MetadataUpdate is the request body for metadata writes. Art is a base64
// data URL; a nil Art leaves artwork untouched.
type MetadataUpdate struct {
	Fields map[string]string `json:"fields"`
	Art    *string           `json:"art"`
}

func (s *Server) handleWriteMetadata(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]
	abs, err := s.lib.Resolve(rel)
	if err != nil {
		s.libError(w, err)
		return
	}
	if _, err := os.Stat(abs); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	var update MetadataUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for name := range update.Fields {
		if !tags.IsField(name) {
			writeError(w, http.StatusBadRequest, "unknown field: "+name)
			return
		}
	}

	var actionIDs []string

	if len(update.Fields) > 0 {
		current, err := tags.ReadFields(abs)
		if err != nil {
			s.logger.Error("Failed to read tags from %s: %v", rel, err)
			writeError(w, http.StatusUnprocessableEntity, "failed to read metadata")
			return
		}

		var changes []history.Change
		toWrite := make(map[string]string)
		for name, value := range update.Fields {
			if current[name] == value {
				continue
			}
			toWrite[name] = value
			changes = append(changes, history.Change{
				Field:    name,
				OldValue: current[name],
				NewValue: value,
			})
		}

		if len(toWrite) > 0 {
			if err := tags.WriteFields(abs, toWrite); err != nil {
				s.logger.Error("Failed to write tags to %s: %v", rel, err)
				writeError(w, http.StatusInternalServerError, "failed to write metadata")
				return
			}
			action := s.ledger.Record(history.KindEdit, s.lib.Rel(abs), changes)
			actionIDs = append(actionIDs, action.ID)
			s.hub.Broadcast(Event{Type: "metadata_edit", File: action.File, ActionID: action.ID})
		}
	}

	if update.Art != nil {
		data, err := decodeDataURL(*update.Art)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid artwork data")
			return
		}

		oldArt, _ := tags.ReadArtwork(abs)
		if err := tags.WriteArtwork(abs, data); err != nil {
			s.logger.Error("Failed to write artwork to %s: %v", rel, err)
			writeError(w, http.StatusInternalServerError, "failed to write artwork")
			return
		}
		action := s.ledger.Record(history.KindArtwork, s.lib.Rel(abs), []history.Change{{
			Field:    "art",
			OldValue: base64.StdEncoding.EncodeToString(oldArt),
			NewValue: base64.StdEncoding.EncodeToString(data),
		}})
		actionIDs = append(actionIDs, action.ID)
		s.hub.Broadcast(Event{Type: "artwork_edit", File: action.File, ActionID: action.ID})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"action_ids": actionIDs,
	})
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	field, ok := inference.ParseField(vars["field"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid field: "+vars["field"])
		return
	}

	abs, err := s.lib.Resolve(vars["path"])
	if err != nil {
		s.libError(w, err)
		return
	}
	if _, err := os.Stat(abs); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	// An unreadable tag block is not fatal; filename evidence still applies.
	existing := make(map[inference.Field]string)
	if fields, err := tags.ReadFields(abs); err == nil {
		for name, value := range fields {
			if f, ok := inference.ParseField(name); ok {
				existing[f] = value
			}
		}
	} else {
		s.logger.Warn("Inferring %s without existing tags for %s: %v", field, vars["path"], err)
	}

	folder := inference.FolderContext{}
	for _, f := range s.lib.Siblings(abs) {
		folder.Files = append(folder.Files, inference.FolderFile{Name: f.Name, Path: f.Path})
	}

	suggestions := s.engine.InferField(r.Context(), abs, field, existing, folder)

	writeJSON(w, http.StatusOK, map[string]any{
		"field":       string(field),
		"suggestions": suggestions,
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	abs, err := s.lib.Resolve(mux.Vars(r)["path"])
	if err != nil {
		s.libError(w, err)
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", audio.MIMEType(abs))
	// ServeContent handles Range requests and conditional headers.
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// RenameRequest is the request body for file renames.
type RenameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" || req.NewName == "" {
		writeError(w, http.StatusBadRequest, "path and new_name are required")
		return
	}

	oldName := req.Path
	newRel, err := s.lib.Rename(req.Path, req.NewName)
	if err != nil {
		if errors.Is(err, library.ErrInvalidPath) {
			writeError(w, http.StatusForbidden, "invalid path")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ledger.UpdateFile(oldName, newRel)
	action := s.ledger.Record(history.KindRename, newRel, []history.Change{{
		Field:    "filename",
		OldValue: oldName,
		NewValue: newRel,
	}})
	s.hub.Broadcast(Event{Type: "rename", File: newRel, ActionID: action.ID})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"path":      newRel,
		"action_id": action.ID,
	})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": s.ledger.List()})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	action, err := s.ledger.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.applyHistory(w, mux.Vars(r)["id"], true)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.applyHistory(w, mux.Vars(r)["id"], false)
}

// applyHistory re-applies an action's old values (undo) or new values
// (redo) and flips its undone flag.
func (s *Server) applyHistory(w http.ResponseWriter, id string, undo bool) {
	action, err := s.ledger.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	// Undo wants a live action, redo an undone one.
	if action.Undone == undo {
		if undo {
			writeError(w, http.StatusConflict, "action already undone")
		} else {
			writeError(w, http.StatusConflict, "action not undone")
		}
		return
	}

	if err := s.applyAction(action, undo); err != nil {
		s.logger.Error("Failed to apply history action %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := s.ledger.SetUndone(id, undo)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	eventType := "redo"
	if undo {
		eventType = "undo"
	}
	s.hub.Broadcast(Event{Type: eventType, File: updated.File, ActionID: updated.ID})

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) applyAction(action history.Action, undo bool) error {
	pick := func(c history.Change) string {
		if undo {
			return c.OldValue
		}
		return c.NewValue
	}

	switch action.Kind {
	case history.KindEdit:
		abs, err := s.lib.Resolve(action.File)
		if err != nil {
			return err
		}
		fields := make(map[string]string, len(action.Changes))
		for _, c := range action.Changes {
			fields[c.Field] = pick(c)
		}
		return tags.WriteFields(abs, fields)

	case history.KindArtwork:
		abs, err := s.lib.Resolve(action.File)
		if err != nil {
			return err
		}
		for _, c := range action.Changes {
			data, err := base64.StdEncoding.DecodeString(pick(c))
			if err != nil {
				return err
			}
			if err := tags.WriteArtwork(abs, data); err != nil {
				return err
			}
		}
		return nil

	case history.KindRename:
		for _, c := range action.Changes {
			from, to := c.OldValue, c.NewValue
			if undo {
				from, to = c.NewValue, c.OldValue
			}
			newRel, err := s.lib.Rename(from, baseName(to))
			if err != nil {
				return err
			}
			s.ledger.UpdateFile(from, newRel)
		}
		return nil
	}

	return errors.New("unknown action kind")
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.ledger.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) libError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrInvalidPath) {
		writeError(w, http.StatusForbidden, "invalid path")
		return
	}
	writeError(w, http.StatusNotFound, err.Error())
}

func baseName(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// decodeDataURL extracts the payload of a base64 data URL, also accepting
// bare base64.
func decodeDataURL(s string) ([]byte, error) {
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
