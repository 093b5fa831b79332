package mdshow

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gobuffalo/packr/v2"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

var (
	templateBox = packr.New("templates", "./templates")
	staticBox   = packr.New("static", "./static")
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename reduces an uploaded filename to a safe base name.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.TrimLeft(name, "._")
}

// PresentationServer wires the HTTP surface: upload and page routes, the
// JSON API and the websocket endpoint. Input errors are rejected here,
// before anything reaches the store or the parser.
type PresentationServer struct {
	store      *DocumentStore
	hub        *Hub
	httpServer *http.Server
	uploadDir  string
	templates  *template.Template
	log        *logrus.Logger
}

func NewPresentationServer(store *DocumentStore, hub *Hub, addr, uploadDir string, log *logrus.Logger) (*PresentationServer, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	p := &PresentationServer{
		store:     store,
		hub:       hub,
		uploadDir: uploadDir,
		templates: templates,
		log:       log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", p.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/upload", p.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/present/{file_id}", p.servePresenter).Methods(http.MethodGet)
	r.HandleFunc("/edit/{file_id}", p.serveEditor).Methods(http.MethodGet)
	r.HandleFunc("/api/markdown/{file_id}", p.handleGetMarkdown).Methods(http.MethodGet)
	r.HandleFunc("/api/check/{file_id}", p.handleCheck).Methods(http.MethodGet)
	r.Handle("/ws", hub)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(staticBox)))

	p.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}

	return p, nil
}

func loadTemplates() (*template.Template, error) {
	t := template.New("pages")
	for _, name := range []string{"index.html", "presenter.html", "editor.html"} {
		src, err := templateBox.FindString(name)
		if err != nil {
			return nil, err
		}
		if _, err := t.New(name).Parse(src); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Handler exposes the route tree, mainly for tests.
func (p *PresentationServer) Handler() http.Handler {
	return p.httpServer.Handler
}

func (p *PresentationServer) Run() {
	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.WithError(err).Error("http server stopped")
		}
	}()
}

func (p *PresentationServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	return p.httpServer.Shutdown(ctx)
}

type pageData struct {
	FileID      string
	Filename    string
	Content     string
	Slides      []*Slide
	TotalSlides int
	Meta        DocumentMeta
}

func (p *PresentationServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	p.renderPage(w, "index.html", nil)
}

func (p *PresentationServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		p.writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if filename == "" {
		p.writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		p.writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		p.writeError(w, http.StatusBadRequest, "Reading upload failed")
		return
	}

	id := NewDocumentID()
	path := filepath.Join(p.uploadDir, id+".md")
	if err := os.WriteFile(path, content, 0644); err != nil {
		p.log.WithError(err).WithField("path", path).Error("saving upload failed")
		p.writeError(w, http.StatusInternalServerError, "Saving upload failed")
		return
	}

	p.store.Create(id, filename, string(content), path, false)

	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"file_id":  id,
		"redirect": "/present/" + id,
	})
}

func (p *PresentationServer) servePresenter(w http.ResponseWriter, r *http.Request) {
	p.servePage(w, r, "presenter.html")
}

func (p *PresentationServer) serveEditor(w http.ResponseWriter, r *http.Request) {
	p.servePage(w, r, "editor.html")
}

func (p *PresentationServer) servePage(w http.ResponseWriter, r *http.Request, page string) {
	id := mux.Vars(r)["file_id"]

	snap, err := p.store.Snapshot(id)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	p.renderPage(w, page, &pageData{
		FileID:      id,
		Filename:    snap.Filename,
		Content:     snap.Content,
		Slides:      snap.Slides,
		TotalSlides: len(snap.Slides),
		Meta:        snap.Meta,
	})
}

func (p *PresentationServer) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.templates.ExecuteTemplate(w, name, data); err != nil {
		p.log.WithError(err).WithField("template", name).Error("rendering page failed")
	}
}

func (p *PresentationServer) handleGetMarkdown(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["file_id"]

	snap, err := p.store.Snapshot(id)
	if err != nil {
		p.writeError(w, http.StatusNotFound, "Not found")
		return
	}

	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"content": snap.Content,
		"slides":  snap.Slides,
	})
}

func (p *PresentationServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["file_id"]

	snap, err := p.store.Snapshot(id)
	if err != nil {
		p.writeJSON(w, http.StatusOK, map[string]interface{}{"exists": false})
		return
	}

	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"exists":     true,
		"filename":   snap.Filename,
		"slideCount": len(snap.Slides),
	})
}

func (p *PresentationServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		p.log.WithError(err).Error("writing response failed")
	}
}

func (p *PresentationServer) writeError(w http.ResponseWriter, status int, msg string) {
	p.writeJSON(w, status, map[string]interface{}{"error": msg})
}
