package mockapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/five82/recast/internal/api"
)

type principal struct {
	userID string
	token  string
}

func withUser(ctx context.Context, userID, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, principal{userID: userID, token: token})
}

func currentUser(r *http.Request) principal {
	p, _ := r.Context().Value(ctxKey{}).(principal)
	return p
}

func (s *Server) issueToken(userID string) string {
	token := "mock-" + uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := &user{
		User: api.User{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  strings.TrimSpace(body.FullName),
			CreatedAt: s.timestamp(s.now()),
		},
		password: body.Password,
	}
	s.users[email] = u
	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: s.issueToken(u.ID),
		TokenType:   "bearer",
		ExpiresIn:   1800,
		User:        u.User,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(body.Email))]
	if !ok || u.password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: s.issueToken(u.ID),
		TokenType:   "bearer",
		ExpiresIn:   1800,
		User:        u.User,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p := currentUser(r)
	s.mu.Lock()
	delete(s.tokens, p.token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == p.userID {
			writeJSON(w, http.StatusOK, u.User)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

// ownedJob returns the caller's job after advancing it. The caller holds s.mu.
func (s *Server) ownedJob(r *http.Request, id string) (*jobRecord, bool) {
	rec, ok := s.jobs[id]
	if !ok || rec.job.UserID != currentUser(r).userID {
		return nil, false
	}
	s.advance(rec)
	return rec, true
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	query := api.JobQuery{Page: page, Limit: limit}.Normalized()
	status := api.JobStatus(q.Get("status"))
	if status == "" {
		status = api.JobStatus(q.Get("status_filter"))
	}
	if status != "" && !status.Valid() {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid status filter")
		return
	}

	userID := currentUser(r).userID
	s.mu.Lock()
	var matched []*jobRecord
	for _, rec := range s.jobs {
		if rec.job.UserID != userID {
			continue
		}
		s.advance(rec)
		if status != "" && rec.job.Status != status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].created.Equal(matched[j].created) {
			return matched[i].job.ID < matched[j].job.ID
		}
		return matched[i].created.After(matched[j].created)
	})
	total := len(matched)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)
	items := make([]api.Job, 0, end-start)
	for _, rec := range matched[start:end] {
		items = append(items, rec.job)
	}
	s.mu.Unlock()

	pages := int(math.Ceil(float64(total) / float64(query.Limit)))
	writeJSON(w, http.StatusOK, api.JobList{
		Items: items,
		Total: total,
		Page:  query.Page,
		Pages: pages,
		Limit: query.Limit,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedJob(r, chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, rec.job)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedJob(r, chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	if !rec.job.Status.IsActive() {
		writeDetail(w, http.StatusBadRequest, "Job cannot be cancelled in its current state")
		return
	}
	rec.job.Status = api.StatusCancelled
	rec.job.CurrentStep = ""
	rec.job.UpdatedAt = s.timestamp(s.now())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled successfully"})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	rec, ok := s.ownedJob(r, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	if rec.job.Status.IsActive() {
		writeDetail(w, http.StatusBadRequest, "Cannot delete a job that is still running")
		return
	}
	delete(s.jobs, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

func (s *Server) jobOutputs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedJob(r, chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	outputs := make(map[api.Platform]api.Output, len(rec.outputs))
	for p, o := range rec.outputs {
		outputs[p] = o
	}
	writeJSON(w, http.StatusOK, api.JobOutputs{JobID: rec.job.ID, Outputs: outputs})
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preferences map[string]any `json:"preferences"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}
	}

	outputID := chi.URLParam(r, "id")
	userID := currentUser(r).userID
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.jobs {
		if rec.job.UserID != userID {
			continue
		}
		for p, out := range rec.outputs {
			if out.ID != outputID {
				continue
			}
			next := s.newJob(userID, rec.contentID, rec.job.Title, rec.fileName, []api.Platform{p}, body.Preferences)
			writeJSON(w, http.StatusAccepted, api.RegenerateResponse{
				JobID:   next.job.ID,
				Status:  next.job.Status,
				Message: "Regeneration started",
			})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Output not found")
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).userID
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		out       api.Analytics
		contents  = map[string]bool{}
		platforms = map[api.Platform]bool{}
		totalSecs float64
		timed     int
	)
	for _, rec := range s.jobs {
		if rec.job.UserID != userID {
			continue
		}
		s.advance(rec)
		out.TotalJobs++
		contents[rec.contentID] = true
		switch rec.job.Status {
		case api.StatusCompleted:
			out.CompletedJobs++
			if done := rec.job.ParsedCompletedAt(); !done.IsZero() {
				totalSecs += done.Sub(rec.created).Seconds()
				timed++
			}
		case api.StatusProcessing:
			out.ProcessingJobs++
		}
		out.TotalOutputs += len(rec.outputs)
		for _, p := range rec.job.Platforms {
			platforms[p] = true
		}
	}
	out.TotalContent = len(contents)
	if timed > 0 {
		avg := totalSecs / float64(timed)
		out.AvgProcessingTimeSeconds = &avg
	}
	out.PlatformsUsed = []api.Platform{}
	for _, p := range api.Platforms {
		if platforms[p] {
			out.PlatformsUsed = append(out.PlatformsUsed, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

const maxUploadBytes = 50 << 20

var uploadExtensions = map[string]bool{".pdf": true, ".docx": true, ".pptx": true, ".txt": true}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "A file is required")
		return
	}
	file.Close()
	if header.Size > maxUploadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if !uploadExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		writeDetail(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	var platforms []api.Platform
	if err := json.Unmarshal([]byte(r.FormValue("platforms")), &platforms); err != nil || len(platforms) == 0 {
		writeDetail(w, http.StatusBadRequest, "At least one platform must be selected")
		return
	}
	for _, p := range platforms {
		if !p.Known() {
			writeDetail(w, http.StatusBadRequest, "Unsupported platform: "+string(p))
			return
		}
	}
	var prefs map[string]any
	if raw := r.FormValue("preferences"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			writeDetail(w, http.StatusBadRequest, "Preferences must be a JSON object")
			return
		}
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	userID := currentUser(r).userID
	s.mu.Lock()
	contentID := uuid.NewString()
	rec := s.newJob(userID, contentID, title, header.Filename, platforms, prefs)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, api.UploadResponse{
		ContentID: contentID,
		JobID:     rec.job.ID,
		Status:    rec.job.Status,
		Message:   "Content uploaded successfully. Processing started.",
	})
}

// newJob records a pending job. The caller holds s.mu.
func (s *Server) newJob(userID, contentID, title, fileName string, platforms []api.Platform, prefs map[string]any) *jobRecord {
	now := s.now()
	stamp := s.timestamp(now)
	rec := &jobRecord{
		job: api.Job{
			ID:              uuid.NewString(),
			ContentID:       contentID,
			UserID:          userID,
			Title:           title,
			Status:          api.StatusPending,
			Platforms:       append([]api.Platform(nil), platforms...),
			CurrentStep:     "Queued",
			UserPreferences: prefs,
			CreatedAt:       stamp,
			UpdatedAt:       stamp,
		},
		created:   now,
		fileName:  fileName,
		contentID: contentID,
	}
	s.jobs[rec.job.ID] = rec
	s.log.Debug().Str("job_id", rec.job.ID).Str("title", title).Msg("job created")
	return rec
}

// advance moves rec along pending, processing and completed according to the
// clock. Files named like "*fail*" end in failed. The caller holds s.mu.
func (s *Server) advance(rec *jobRecord) {
	if rec.job.Status.IsTerminal() {
		return
	}
	elapsed := s.now().Sub(rec.created)
	if rec.job.Status == api.StatusPending && elapsed >= s.step {
		rec.job.Status = api.StatusProcessing
		rec.job.ProgressPercentage = 50
		rec.job.CurrentStep = "Generating content"
		rec.job.StartedAt = s.timestamp(rec.created.Add(s.step))
		rec.job.UpdatedAt = rec.job.StartedAt
	}
	if rec.job.Status == api.StatusProcessing && elapsed >= 2*s.step {
		finished := rec.created.Add(2 * s.step)
		rec.job.UpdatedAt = s.timestamp(finished)
		rec.job.CurrentStep = ""
		if strings.Contains(strings.ToLower(rec.fileName), "fail") {
			rec.job.Status = api.StatusFailed
			rec.job.ErrorMessage = "Content extraction failed"
			return
		}
		rec.job.Status = api.StatusCompleted
		rec.job.ProgressPercentage = 100
		rec.job.CompletedAt = rec.job.UpdatedAt
		rec.outputs = generateOutputs(rec.job, rec.job.CompletedAt)
	}
}
