package subdivx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelospk/subdivx-go/internal/constants"
	"github.com/angelospk/subdivx-go/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// Config holds the provider settings.
type Config struct {
	Username string
	Password string

	BaseURL            string        // Optional: defaults to constants.DefaultBaseURL
	UserAgent          string        // Optional: defaults to constants.DefaultUserAgent
	Timeout            time.Duration // Per request; defaults to constants.DefaultTimeout seconds
	InsecureSkipVerify bool

	// MaxPages stops paging after that many result pages. Zero keeps paging
	// until the site returns an empty page.
	MaxPages int

	// RequireCredentials rejects a configuration without username and password.
	RequireCredentials bool

	Logger *log.Logger

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// loginForm is the site's login form, field names included.
type loginForm struct {
	Username string `url:"usuario"`
	Password string `url:"clave"`
	Submit   string `url:"Enviar"`
	Action   string `url:"accion"`
	SendUser string `url:"enviau"`
	Referer  string `url:"refer"`
}

// Provider searches and downloads subtitles from subdivx. It owns one
// session, opened by Initialize and released by Terminate.
type Provider struct {
	config   Config
	logger   *log.Logger
	session  *httpclient.Client
	loggedIn bool
}

// NewProvider validates the configuration. Credentials go together: one
// without the other is a configuration error.
func NewProvider(cfg Config) (*Provider, error) {
	hasUser, hasPass := cfg.Username != "", cfg.Password != ""
	if hasUser != hasPass || (cfg.RequireCredentials && !hasUser) {
		return nil, coreErrors.ErrConfiguration
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL provided: %w", err)
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultTimeout * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Provider{config: cfg, logger: logger}, nil
}

// Languages lists the languages the site can provide.
func (p *Provider) Languages() []language.Tag {
	return []language.Tag{LatinAmericanSpanish, Spanish}
}

// LoggedIn reports whether the session is authenticated.
func (p *Provider) LoggedIn() bool {
	return p.loggedIn
}

// Initialize opens the session and, when credentials are configured, logs in.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.session == nil {
		session, err := httpclient.New(p.config.BaseURL, p.config.UserAgent, httpclient.Options{
			Timeout:            p.config.Timeout,
			InsecureSkipVerify: p.config.InsecureSkipVerify,
			Transport:          p.config.Transport,
		})
		if err != nil {
			return fmt.Errorf("failed to open session: %w", err)
		}
		p.session = session
	}

	if p.config.Username == "" {
		return nil
	}

	p.logger.Infof("Logging in as %s", p.config.Username)
	resp, err := p.session.PostForm(ctx, constants.LoginPath, loginForm{
		Username: p.config.Username,
		Password: p.config.Password,
		Submit:   "Entrar",
		Action:   "50",
		SendUser: "1",
		Referer:  p.config.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if strings.Contains(resp.Text(), constants.LoginFailurePhrase) {
		return &coreErrors.AuthenticationError{Username: p.config.Username}
	}

	p.logger.Debug("Logged in")
	p.loggedIn = true
	return nil
}

// Terminate logs out when logged in and always releases the session.
func (p *Provider) Terminate(ctx context.Context) error {
	if p.session == nil {
		return nil
	}
	defer func() {
		p.session.Close()
		p.session = nil
	}()

	if !p.loggedIn {
		return nil
	}
	p.logger.Info("Logging out")
	_, err := p.session.GetNoRedirect(ctx, constants.LogoutPath, nil)
	p.loggedIn = false
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	p.logger.Debug("Logged out")
	return nil
}

// WithProvider initializes a provider, runs fn and terminates it on every
// path. An initialization failure still releases the session.
func WithProvider(ctx context.Context, cfg Config, fn func(*Provider) error) (err error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if termErr := p.Terminate(ctx); termErr != nil && err == nil {
			err = termErr
		}
	}()
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	return fn(p)
}

// Query searches the site page by page until a page has no listings.
func (p *Provider) Query(ctx context.Context, query string) ([]*Subtitle, error) {
	if p.session == nil {
		return nil, coreErrors.ErrNotInitialized
	}

	var subs []*Subtitle
	for page := 1; ; page++ {
		if p.config.MaxPages > 0 && page > p.config.MaxPages {
			p.logger.Warnf("Stopping search for %q after %d pages", query, p.config.MaxPages)
			break
		}

		ref := fmt.Sprintf(constants.SearchPathTemplate, page, url.QueryEscape(query))
		p.logger.Debugf("Searching %s", ref)
		resp, err := p.session.Get(ctx, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("search page %d for %q failed: %w", page, query, err)
		}

		found, err := ParseSearchPage(resp.Text())
		if err != nil {
			p.logger.Warnf("Unparseable search page %d for %q: %v", page, query, err)
			break
		}
		if len(found) == 0 {
			break
		}
		for _, sub := range found {
			if abs, err := p.session.Resolve(sub.ArchiveURL); err == nil {
				sub.ArchiveURL = abs
			}
		}
		subs = append(subs, found...)
	}

	p.logger.Infof("Found %d subtitles for %q", len(subs), query)
	return subs, nil
}

// ListSubtitles searches for a video. When languages is not empty only
// subtitles in one of them are returned.
func (p *Provider) ListSubtitles(ctx context.Context, video *metadata.Video, languages []language.Tag) ([]*Subtitle, error) {
	query := BuildQuery(video)
	p.logger.Debugf("Query %q for %s", query, video.Name)

	subs, err := p.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		return subs, nil
	}

	filtered := subs[:0]
	for _, sub := range subs {
		for _, lang := range languages {
			if sub.Language == lang {
				filtered = append(filtered, sub)
				break
			}
		}
	}
	return filtered, nil
}

// DownloadSubtitle fetches the listing's archive and stores the selected
// subtitle file as the subtitle content.
func (p *Provider) DownloadSubtitle(ctx context.Context, sub *Subtitle) error {
	if p.session == nil {
		return coreErrors.ErrNotInitialized
	}
	if sub.HasContent() {
		return coreErrors.ErrContentAlreadySet
	}

	p.logger.Infof("Downloading archive %s", sub)
	headers := http.Header{}
	headers.Set("Referer", p.config.BaseURL+sub.ID)
	resp, err := p.session.Get(ctx, sub.ArchiveURL, headers)
	if err != nil {
		return fmt.Errorf("archive download for %s failed: %w", sub.ID, err)
	}

	name, content, err := ExtractSubtitle(resp.Body)
	if err != nil {
		return fmt.Errorf("subtitle %s: %w", sub.ID, err)
	}
	p.logger.Debugf("Using %s from archive of %s", name, sub.ID)
	return sub.SetContent(content)
}
