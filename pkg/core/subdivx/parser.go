package subdivx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

var (
	subtitleIDRe  = regexp.MustCompile(`^https?://www\.subdivx\.com/(.+?)\.html`)
	downloadsRe   = regexp.MustCompile(`Downloads:\s*([\d.,]+)`)
	labelPrefixRe = regexp.MustCompile(`^Subtitulo\s+de\s+`)
	separatorsRe  = regexp.MustCompile(`[,.\s]`)
)

// ParseDownloads reads a download counter written with "," or "."
// thousands separators ("12.345", "1,234").
func ParseDownloads(text string) (int, error) {
	n, err := strconv.Atoi(separatorsRe.ReplaceAllString(text, ""))
	if err != nil {
		return 0, fmt.Errorf("invalid download count %q: %w", text, err)
	}
	return n, nil
}

// ParseSearchPage extracts every subtitle listing from one page of search
// results. Markup that is not a listing is ignored, so an empty or
// unrelated page yields no subtitles and no error.
//
// A listing is laid out as
//
//	<div><div><a class="titulo_menu_izq" href=".../ID.html">Subtitulo de LABEL</a></div><img/></div>
//	<div id="buscador_detalle">
//	  <div id="buscador_detalle_sub">DESCRIPTION</div>
//	  <div id="buscador_detalle_sub_datos"><b>Downloads:</b> N ... <b>Subido por:</b> <a>UPLOADER</a> ... <a href="ARCHIVE" rel="nofollow" target="new">
//
// Archive URLs are returned as found (entity-decoded, possibly relative).
func ParseSearchPage(page string) ([]*Subtitle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var subs []*Subtitle
	doc.Find("a.titulo_menu_izq, a.titulo_menu_izq2").Each(func(_ int, a *goquery.Selection) {
		sub, err := parseListing(a)
		if err != nil {
			log.Debugf("Skipping listing: %v", err)
			return
		}
		log.Debugf("Found subtitle %s", sub)
		subs = append(subs, sub)
	})
	return subs, nil
}

func parseListing(a *goquery.Selection) (*Subtitle, error) {
	href, _ := a.Attr("href")
	idMatch := subtitleIDRe.FindStringSubmatch(strings.TrimSpace(href))
	if idMatch == nil {
		return nil, fmt.Errorf("no subtitle id in %q", href)
	}

	detail := a.Parent().Parent().NextFiltered("#buscador_detalle")
	if detail.Length() == 0 {
		return nil, fmt.Errorf("no detail block for %s", idMatch[1])
	}
	// Keep words on either side of a line break apart.
	detail.Find("br").ReplaceWithHtml(" ")
	data := detail.Find("#buscador_detalle_sub_datos").First()

	dlMatch := downloadsRe.FindStringSubmatch(data.Text())
	if dlMatch == nil {
		return nil, fmt.Errorf("no download count for %s", idMatch[1])
	}
	downloads, err := ParseDownloads(dlMatch[1])
	if err != nil {
		return nil, err
	}

	var uploader string
	data.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if !strings.HasPrefix(strings.TrimSpace(b.Text()), "Subido por") {
			return true
		}
		uploader = strings.TrimSpace(b.NextAllFiltered("a").First().Text())
		return false
	})
	if uploader == "" {
		return nil, fmt.Errorf("no uploader for %s", idMatch[1])
	}

	archiveURL, ok := data.Find(`a[rel="nofollow"][target="new"]`).First().Attr("href")
	if !ok || strings.TrimSpace(archiveURL) == "" {
		return nil, fmt.Errorf("no archive link for %s", idMatch[1])
	}

	label := labelPrefixRe.ReplaceAllString(strings.TrimSpace(a.Text()), "")
	description := strings.Join(strings.Fields(detail.Find("#buscador_detalle_sub").First().Text()), " ")

	return NewSubtitle(idMatch[1], label, description, downloads, uploader, strings.TrimSpace(archiveURL)), nil
}
