package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/knol"
	"github.com/conorfennell/recall/internal/library"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/review"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/study"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// partialHeader marks requests from the page script, which swaps the
// returned fragment into place instead of following a redirect.
const partialHeader = "Recall-Partial"

// multipartOverhead is the room left above MaxFileSize for form fields and
// part headers.
const multipartOverhead = 1 << 20

// Options configures a Server.
type Options struct {
	// DB enables the deck library. May be nil.
	DB *storage.DB
	// LibraryDir is scanned into the library on request. Empty disables
	// scanning.
	LibraryDir string
	SessionTTL time.Duration
	Logger     zerolog.Logger
	// NewController overrides how per-browser controllers are built.
	NewController func() *study.Controller
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db         *storage.DB
	libraryDir string
	router     *http.ServeMux
	templates  *template.Template
	sessions   *sessions
	log        zerolog.Logger
}

// NewServer creates and configures a new server.
func NewServer(opts Options) (*Server, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"percent": func(f float64) string { return strconv.FormatFloat(f*100, 'f', 0, 64) },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	create := opts.NewController
	if create == nil {
		log := opts.Logger
		create = func() *study.Controller { return study.New(study.WithLogger(log)) }
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	s := &Server{
		db:         opts.DB,
		libraryDir: opts.LibraryDir,
		router:     http.NewServeMux(),
		templates:  tpl,
		sessions:   newSessions(ttl, create),
		log:        opts.Logger,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("GET /static/", http.StripPrefix("/static/", fileServer))
	s.router.HandleFunc("GET /{$}", s.handleIndex())
	s.router.HandleFunc("GET /sample.xlsx", s.handleSample())

	// Import
	s.router.HandleFunc("POST /upload", s.handleUpload())
	s.router.HandleFunc("POST /start", s.handleStart())
	s.router.HandleFunc("POST /reset", s.handleReset())

	// Review
	s.router.HandleFunc("POST /review/key", s.handleKey())
	s.router.HandleFunc("POST /review/{action}", s.handleReviewAction())

	// Library
	s.router.HandleFunc("POST /library/scan", s.handleLibraryScan())
	s.router.HandleFunc("POST /library/{hash}/load", s.handleLibraryLoad())
	return nil
}

type pageData struct {
	study.View
	MaxSize string
	Accept  string
	Library bool
	CanScan bool
	Decks   []storage.DeckInfo
}

func (s *Server) pageData(ctx context.Context, ctrl *study.Controller) pageData {
	data := pageData{
		View:    ctrl.View(),
		MaxSize: humanize.IBytes(importer.MaxFileSize),
		Accept:  strings.Join(importer.AllowedExtensions, ","),
		Library: s.db != nil,
		CanScan: s.db != nil && s.libraryDir != "",
	}
	if s.db != nil && data.Importing() {
		decks, err := s.db.ListDecks(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("list decks")
		}
		data.Decks = decks
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("render")
	}
}

// respond answers a state-changing request: the main fragment for the page
// script, a redirect back to the page for plain form posts.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, ctrl *study.Controller) {
	if r.Header.Get(partialHeader) == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "main", s.pageData(r.Context(), ctrl))
}

// handleIndex renders the whole page for the current screen.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)
		s.render(w, "page", s.pageData(r.Context(), ctrl))
	}
}

// handleSample serves the example workbook.
func (s *Server) handleSample() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="sample.xlsx"`)
		if err := parser.WriteSample(w); err != nil {
			s.log.Error().Err(err).Msg("write sample workbook")
		}
	}
}

// handleUpload validates and decodes a dropped or picked file.
func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)

		r.Body = http.MaxBytesReader(w, r.Body, importer.MaxFileSize+multipartOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				ctrl.Fail(&domain.ImportError{Kind: domain.FileTooLarge, Max: importer.MaxFileSize})
			case errors.Is(err, http.ErrMissingFile):
			default:
				http.Error(w, "Invalid upload", http.StatusBadRequest)
				return
			}
			s.respond(w, r, ctrl)
			return
		}
		defer file.Close()

		ticket, err := ctrl.BeginUpload(header.Filename, header.Size)
		if err != nil {
			s.respond(w, r, ctrl)
			return
		}

		cards, err := parser.ParseReader(file)
		if err != nil {
			s.log.Debug().Err(err).Str("file", header.Filename).Msg("decode failed")
		}
		if ctrl.CompleteUpload(ticket, header.Filename, cards, err) && err == nil {
			s.remember(r.Context(), header.Filename, cards)
		}
		s.respond(w, r, ctrl)
	}
}

// remember adds an uploaded deck to the library, when there is one.
func (s *Server) remember(ctx context.Context, name string, cards []domain.Card) {
	if s.db == nil {
		return
	}
	deck := storage.Deck{
		DeckInfo: storage.DeckInfo{Hash: knol.DeckHash(cards), Name: name, Uploaded: true},
		Cards:    cards,
	}
	if err := s.db.SaveDeck(ctx, deck); err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("failed to save deck to library")
	}
}

// handleStart prepares the loaded deck and begins the review.
func (s *Server) handleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		opts := importer.Options{
			Start:   formInt(r, "start"),
			End:     formInt(r, "end"),
			Limit:   formInt(r, "limit"),
			Shuffle: r.PostFormValue("shuffle") != "",
		}
		if err := ctrl.Start(opts); err != nil && !errors.Is(err, study.ErrNothingToReview) {
			s.log.Debug().Err(err).Msg("start rejected")
		}
		s.respond(w, r, ctrl)
	}
}

// formInt reads an optional integer field. Blank or non-numeric input
// counts as not set.
func formInt(r *http.Request, name string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(name)))
	if err != nil {
		return nil
	}
	return &v
}

// handleReset discards the session and anything imported.
func (s *Server) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)
		ctrl.Reset()
		s.respond(w, r, ctrl)
	}
}

// handleReviewAction handles the review buttons.
func (s *Server) handleReviewAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)
		switch r.PathValue("action") {
		case "next":
			ctrl.Next()
		case "previous":
			ctrl.Previous()
		case "flip":
			ctrl.Flip()
		case "finish":
			ctrl.Finish()
		default:
			http.NotFound(w, r)
			return
		}
		s.respond(w, r, ctrl)
	}
}

// handleKey applies a key press forwarded by the page script.
func (s *Server) handleKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := s.sessions.controller(w, r)
		ctrl.Press(review.Key(r.PostFormValue("key")))
		s.respond(w, r, ctrl)
	}
}

// handleLibraryLoad loads a stored deck as if it had just been uploaded.
func (s *Server) handleLibraryLoad() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil {
			http.NotFound(w, r)
			return
		}
		ctrl := s.sessions.controller(w, r)
		hash := r.PathValue("hash")

		info, err := s.db.FindDeck(r.Context(), hash)
		if err != nil {
			s.log.Error().Err(err).Str("hash", hash).Msg("find deck")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info == nil {
			http.NotFound(w, r)
			return
		}

		cards, err := s.db.LoadCards(r.Context(), hash)
		if err != nil {
			s.log.Error().Err(err).Str("hash", hash).Msg("load cards")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctrl.Load(info.Name, cards)
		s.respond(w, r, ctrl)
	}
}

// handleLibraryScan re-reads the library directory.
func (s *Server) handleLibraryScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil || s.libraryDir == "" {
			http.NotFound(w, r)
			return
		}
		ctrl := s.sessions.controller(w, r)

		report, err := library.Scan(r.Context(), s.db, s.libraryDir, s.log)
		if err != nil {
			s.log.Error().Err(err).Msg("library scan")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		for _, e := range report.Errors {
			s.log.Warn().Err(e).Msg("library scan")
		}
		s.respond(w, r, ctrl)
	}
}
