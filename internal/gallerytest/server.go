package gallerytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cardlift/cardlift/internal/gallery"
	"github.com/cardlift/cardlift/internal/upload"
)

// DefaultAPIVersion is reported on every response unless overridden.
const DefaultAPIVersion = "1.0.0"

// Options configures the fake server's behavior.
type Options struct {
	// Token is the bearer token every batch call must present. Empty
	// disables authentication.
	Token string

	// APIVersion is the value of the API version response header.
	// Defaults to DefaultAPIVersion.
	APIVersion string

	// Latency delays every batch exchange, so cancellation mid-flight can
	// be exercised over a real connection.
	Latency time.Duration

	// BatchWarning, when set, is attached to every success response.
	BatchWarning string

	// Existing seeds character names that already exist in the gallery.
	// Uploading any of them rejects the whole batch as an exact duplicate.
	Existing []string

	// NearDuplicates maps character names to a similarity score. Uploading
	// one succeeds but flags the created entity for review.
	NearDuplicates map[string]float64

	// FailEvery makes every Nth batch call fail with 503. Zero disables.
	FailEvery int
}

// Rejection is a scripted per-file failure.
type Rejection struct {
	Message     string
	DuplicateOf string
}

// Server is a fake gallery backend. All exported methods are safe for
// concurrent use with in-flight requests.
type Server struct {
	opts Options

	mu         sync.Mutex
	calls      int
	failQueue  []int
	rejections map[string]Rejection
	known      map[string]upload.MatchRef
	characters []upload.CreatedEntity
	start      time.Time
}

// New returns a fake server seeded from opts.
func New(opts Options) *Server {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}

	s := &Server{
		opts:       opts,
		rejections: make(map[string]Rejection),
		known:      make(map[string]upload.MatchRef),
		start:      time.Now(),
	}
	s.seedExisting()
	return s
}

func (s *Server) seedExisting() {
	for _, name := range s.opts.Existing {
		s.known[name] = upload.MatchRef{ID: "char-" + uuid.NewString(), Name: name}
	}
}

// Router builds the gin engine serving the fake API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Header(gallery.APIVersionHeader, s.opts.APIVersion)
		c.Next()
	})

	r.GET("/health", s.handleHealth)
	r.GET("/api/characters", s.handleList)
	r.POST(gallery.BatchUploadPath, s.handleBatch)
	return r
}

// Handler exposes the router as a plain http.Handler.
func (s *Server) Handler() http.Handler {
	return s.Router()
}

// RejectFile scripts a per-file server error for the given filename.
func (s *Server) RejectFile(filename string, rej Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections[filename] = rej
}

// FailNext queues an injected failure status for the next batch call.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failQueue = append(s.failQueue, status)
}

// Calls reports how many batch calls the server has received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Characters returns a snapshot of the committed gallery contents.
func (s *Server) Characters() []upload.CreatedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]upload.CreatedEntity, len(s.characters))
	copy(out, s.characters)
	return out
}

// Reset clears the store and counters, keeping the seeded names.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = 0
	s.failQueue = nil
	s.rejections = make(map[string]Rejection)
	s.known = make(map[string]upload.MatchRef)
	s.characters = nil
	s.seedExisting()
}

// beginCall counts the batch call and reports any injected failure.
func (s *Server) beginCall() (status int, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.failQueue) > 0 {
		status = s.failQueue[0]
		s.failQueue = s.failQueue[1:]
		return status, true
	}
	if s.opts.FailEvery > 0 && s.calls%s.opts.FailEvery == 0 {
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	stored := len(s.characters)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"characters": stored,
		"uptime":     time.Since(s.start).String(),
	})
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"characters": s.Characters()})
}

// batchBody is the success response of a batch upload. The characters array
// stays index-aligned with the uploaded files; a rejected file keeps its slot
// and is reported in errors as well, and clients must let the error entry win.
type batchBody struct {
	Characters []upload.CreatedEntity `json:"characters"`
	Warning    string                 `json:"warning,omitempty"`
	Errors     []upload.ServerError   `json:"errors,omitempty"`
}

// conflictBody is the response of a batch-level exact-duplicate rejection.
type conflictBody struct {
	Error             string           `json:"error"`
	DuplicateType     string           `json:"duplicateType"`
	ExistingCharacter *upload.MatchRef `json:"existingCharacter,omitempty"`
}

func (s *Server) handleBatch(c *gin.Context) {
	if status, fail := s.beginCall(); fail {
		c.JSON(status, gin.H{"error": "injected failure"})
		return
	}

	if s.opts.Token != "" && c.GetHeader("Authorization") != "Bearer "+s.opts.Token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
		return
	}

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-c.Request.Context().Done():
			return
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed multipart payload: " + err.Error()})
		return
	}

	files := form.File[gallery.FilesField]
	metaValues := form.Value[gallery.MetadataField]
	if len(metaValues) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected exactly one metadata field"})
		return
	}

	var metadata []upload.Metadata
	if err := json.Unmarshal([]byte(metaValues[0]), &metadata); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "undecodable metadata: " + err.Error()})
		return
	}
	if len(metadata) != len(files) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("metadata entries (%d) do not match uploaded files (%d)",
				len(metadata), len(files)),
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact duplicates reject the whole batch before anything is committed.
	for _, m := range metadata {
		if ref, ok := s.known[m.Name]; ok {
			existing := ref
			c.JSON(http.StatusConflict, conflictBody{
				Error:             fmt.Sprintf("character %q already exists in the gallery", m.Name),
				DuplicateType:     "exact",
				ExistingCharacter: &existing,
			})
			return
		}
	}

	resp := batchBody{
		Characters: make([]upload.CreatedEntity, 0, len(files)),
		Warning:    s.opts.BatchWarning,
	}

	for i, fh := range files {
		m := metadata[i]
		entity := upload.CreatedEntity{
			ID:       "char-" + uuid.NewString(),
			Name:     m.Name,
			Series:   m.Series,
			Rarity:   m.Rarity,
			ImageURL: "/images/" + fh.Filename,
		}

		if rej, ok := s.rejections[fh.Filename]; ok {
			resp.Characters = append(resp.Characters, entity)
			resp.Errors = append(resp.Errors, upload.ServerError{
				Filename:    fh.Filename,
				Message:     rej.Message,
				DuplicateOf: rej.DuplicateOf,
			})
			continue
		}

		if fh.Size == 0 {
			resp.Characters = append(resp.Characters, entity)
			resp.Errors = append(resp.Errors, upload.ServerError{
				Filename: fh.Filename,
				Message:  "empty file",
			})
			continue
		}

		if sim, ok := s.opts.NearDuplicates[m.Name]; ok {
			score := sim
			entity.DuplicateWarning = true
			entity.Similarity = &score
			entity.ExistingMatch = &upload.MatchRef{ID: "char-" + uuid.NewString(), Name: m.Name}
			// Held for review, not committed to the store.
			resp.Characters = append(resp.Characters, entity)
			continue
		}

		resp.Characters = append(resp.Characters, entity)
		s.known[m.Name] = upload.MatchRef{ID: entity.ID, Name: entity.Name}
		s.characters = append(s.characters, entity)
	}

	c.JSON(http.StatusCreated, resp)
}
