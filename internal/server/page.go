package server

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"genart/internal/domain"
	"genart/internal/gallery"
	"genart/internal/schedule"
	"genart/internal/status"
)

const emptyGalleryMessage = "No artworks yet. First generation starts soon..."

type pages struct {
	tmpl   *template.Template
	cache  *gallery.Cache
	poller *status.Poller
	cycle  *schedule.Schedule
	site   Site
	logger *zap.Logger
	now    func() time.Time
}

type cardView struct {
	Key         string
	Date        string
	Period      int
	PeriodLabel string
	Theme       string
	Score       string
	Reasoning   string
	ImageURL    string
	CodeURL     string
	HasImage    bool
	HasCode     bool
}

type bannerView struct {
	Visible   bool
	Active    bool
	Agent     string
	Task      string
	Progress  string
	Updated   string
	NextCycle string
}

type pageView struct {
	Site         Site
	Cards        []cardView
	Count        int
	EmptyMessage string
	Banner       bannerView
	Polling      bool
	RefreshMS    int64
}

func newPages(cfg Config) (*pages, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, err
	}
	if _, err := tmpl.New("banner").Parse(bannerTemplate); err != nil {
		return nil, err
	}
	site := cfg.Site
	if site.Title == "" {
		site.Title = "Generative Art Engine"
	}
	return &pages{
		tmpl:   tmpl,
		cache:  cfg.Gallery,
		poller: cfg.Poller,
		cycle:  cfg.Cycle,
		site:   site,
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

func registerPages(r chi.Router, p *pages) {
	r.Get("/", p.gallery)
	r.Get("/banner", p.banner)
}

// registerFiles serves companion images and code. Directory listings are not exposed.
func registerFiles(r chi.Router, root string) {
	fs := http.StripPrefix(filesPrefix, http.FileServer(http.Dir(root)))
	r.Get(filesPrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		fs.ServeHTTP(w, req)
	})
}

func (p *pages) gallery(w http.ResponseWriter, r *http.Request) {
	recs, err := p.cache.Artworks()
	if err != nil {
		p.logger.Error("gallery scan failed", zap.Error(err))
		http.Error(w, "gallery unavailable", http.StatusInternalServerError)
		return
	}
	view := pageView{
		Site:         p.site,
		Cards:        p.cards(recs),
		Count:        len(recs),
		EmptyMessage: emptyGalleryMessage,
		Banner:       p.bannerView(),
	}
	if p.poller != nil {
		view.Polling = true
		view.RefreshMS = p.poller.Interval().Milliseconds()
	}
	w.Header().Set("Cache-Control", cacheControl(p.cache.TTL()))
	p.render(w, "page", view)
}

func (p *pages) banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	p.render(w, "banner", p.bannerView())
}

func (p *pages) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (p *pages) cards(recs []domain.ArtworkRecord) []cardView {
	root := p.cache.Scanner().Root
	out := make([]cardView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cardView{
			Key:         rec.Key(),
			Date:        rec.Date,
			Period:      rec.Period,
			PeriodLabel: rec.PeriodLabel(),
			Theme:       rec.Theme,
			Score:       rec.ScoreText(),
			Reasoning:   rec.Reasoning,
			ImageURL:    path.Join(filesPrefix, rec.ImagePath()),
			CodeURL:     path.Join(filesPrefix, rec.CodePath()),
			HasImage:    fileExists(root, rec.ImagePath()),
			HasCode:     fileExists(root, rec.CodePath()),
		})
	}
	return out
}

func (p *pages) bannerView() bannerView {
	if p.poller == nil {
		return bannerView{}
	}
	snap := p.poller.Snapshot()
	if !snap.Visible() {
		return bannerView{}
	}
	doc := snap.Doc
	return bannerView{
		Visible:   true,
		Active:    snap.State == status.StateActive,
		Agent:     doc.Agent,
		Task:      doc.Task,
		Progress:  doc.Progress,
		Updated:   domain.ClockTime(doc.Timestamp),
		NextCycle: nextCycle(snap, p.cycle, p.now()),
	}
}

func fileExists(root, rel string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}

const bannerTemplate = `{{if .Visible}}<div class="banner {{if .Active}}banner-active{{else}}banner-idle{{end}}">
  <div class="banner-main">
    {{if .Active}}<span class="pulse" aria-hidden="true"></span>{{end}}
    <strong>{{.Agent}}</strong>
    <span class="sep">•</span>
    <span>{{.Task}}</span>
    {{if .Progress}}<span class="sep">•</span>
    <span class="mono">{{.Progress}}</span>{{end}}
  </div>
  <div class="banner-meta">
    <span>Updated: {{.Updated}}</span>
    {{if .NextCycle}}<span class="sep">•</span>
    <span>Next cycle: {{.NextCycle}}</span>{{end}}
  </div>
</div>{{end}}`

const pageTemplate = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>{{.Site.Title}}</title>
    <meta name="description" content="{{.Site.Tagline}}"/>
    <style>
      body { margin: 0; background: #18181b; color: #fafafa; font-family: system-ui, sans-serif; }
      main { max-width: 80rem; margin: 0 auto; padding: 5rem 2rem 2rem; }
      h1 { font-size: 3rem; margin: 0 0 1rem; }
      .tagline { color: #a1a1aa; font-size: 1.125rem; }
      .count { color: #71717a; font-size: .875rem; margin-top: 1rem; }
      .empty { text-align: center; padding: 5rem 0; color: #71717a; font-size: 1.25rem; }
      .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(20rem, 1fr)); gap: 2rem; margin-top: 3rem; }
      .card { background: #27272a; border: 1px solid #3f3f46; border-radius: .5rem; overflow: hidden; }
      .card:hover { border-color: #71717a; }
      .frame { aspect-ratio: 5 / 4; background: #09090b; display: flex; align-items: center; justify-content: center; }
      .frame img { width: 100%; height: 100%; object-fit: contain; }
      .placeholder { color: #52525b; font-size: .875rem; }
      .body { padding: 1.5rem; }
      .meta { color: #71717a; font-size: .75rem; margin-bottom: .5rem; }
      .score { color: #a1a1aa; font-size: .875rem; margin-bottom: .5rem; }
      .reasoning { color: #71717a; font-size: .875rem; display: -webkit-box; -webkit-line-clamp: 3; -webkit-box-orient: vertical; overflow: hidden; }
      .links a { color: #60a5fa; font-size: .875rem; margin-right: 1rem; text-decoration: none; }
      #status-banner { position: fixed; top: 0; left: 0; right: 0; z-index: 50; }
      .banner { display: flex; justify-content: space-between; padding: .75rem 2rem; font-size: .875rem; backdrop-filter: blur(8px); }
      .banner-active { background: rgba(30, 58, 138, .9); color: #dbeafe; }
      .banner-idle { background: rgba(39, 39, 42, .9); color: #a1a1aa; }
      .banner-meta { font-size: .75rem; opacity: .7; }
      .sep { opacity: .5; margin: 0 .5rem; }
      .mono { font-family: ui-monospace, monospace; }
      .pulse { display: inline-block; width: .5rem; height: .5rem; margin-right: .5rem; border-radius: 50%; background: #60a5fa; animation: pulse 1.5s infinite; }
      @keyframes pulse { 50% { opacity: .3; } }
    </style>
  </head>
  <body>
    <div id="status-banner">{{template "banner" .Banner}}</div>
    <main>
      <header>
        <h1>{{.Site.Title}}</h1>
        {{if .Site.Tagline}}<p class="tagline">{{.Site.Tagline}}</p>{{end}}
        <div class="count">{{.Count}} artworks generated</div>
      </header>
      {{if not .Cards}}
      <div class="empty"><p>{{.EmptyMessage}}</p></div>
      {{else}}
      <div class="grid">
        {{range .Cards}}
        <article class="card" id="{{.Key}}">
          <div class="frame">
            {{if .HasImage}}<img src="{{.ImageURL}}" alt="{{.Theme}}" loading="lazy"/>{{else}}<span class="placeholder">Image unavailable</span>{{end}}
          </div>
          <div class="body">
            <div class="meta">{{.Date}} • Period {{.Period}}{{if .PeriodLabel}} ({{.PeriodLabel}}){{end}}</div>
            <h3>{{.Theme}}</h3>
            {{if .Score}}<div class="score">Score: {{.Score}}</div>{{end}}
            {{if .Reasoning}}<p class="reasoning">{{.Reasoning}}</p>{{end}}
            <div class="links">
              {{if .HasCode}}<a href="{{.CodeURL}}" download>View Code</a>{{end}}
              {{if .HasImage}}<a href="{{.ImageURL}}" download>Download</a>{{end}}
            </div>
          </div>
        </article>
        {{end}}
      </div>
      {{end}}
    </main>
    {{if .Polling}}
    <script>
      (function () {
        var el = document.getElementById('status-banner');
        var refresh = function () {
          fetch('/banner', { cache: 'no-store' })
            .then(function (res) { return res.ok ? res.text() : null; })
            .then(function (html) { if (html !== null) { el.innerHTML = html; } })
            .catch(function () {});
        };
        var timer = setInterval(refresh, {{.RefreshMS}});
        window.addEventListener('pagehide', function () { clearInterval(timer); });
      })();
    </script>
    {{end}}
  </body>
</html>`
