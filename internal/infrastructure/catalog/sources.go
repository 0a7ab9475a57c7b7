package catalog

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultOptionSelector = "select option"
	defaultNameSelector   = ".prod_name"
	defaultPriceSelector  = ".prod_price, .price"
	defaultQueryParam     = "q"
)

// OptionListSource reads a vendor's whole product list from the <option> texts of a
// single price-quote page
type OptionListSource struct {
	vendor   string
	url      string
	charset  string
	selector string
	client   *Client
}

// NewOptionListSource creates a source for a quote page. An empty selector means "select option".
func NewOptionListSource(vendor, url, charset, selector string, client *Client) *OptionListSource {
	if selector == "" {
		selector = defaultOptionSelector
	}
	return &OptionListSource{vendor: vendor, url: url, charset: charset, selector: selector, client: client}
}

func (s *OptionListSource) Vendor() string { return s.vendor }

// Fetch downloads the page once; targets are not needed to list every option
func (s *OptionListSource) Fetch(ctx context.Context, _ []domain.TargetDescriptor) ([]domain.CatalogEntry, error) {
	body, err := s.client.Get(ctx, s.url, nil, s.charset)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(domain.ErrCatalogFetch, "%s: parse html: %v", s.vendor, err)
	}

	var texts []string
	doc.Find(s.selector).Each(func(_ int, sel *goquery.Selection) {
		if _, disabled := sel.Attr("disabled"); disabled {
			return
		}
		texts = append(texts, sel.Text())
	})

	entries := ToEntries(texts)
	zap.L().Info("catalog: option list fetched", zap.String("vendor", s.vendor), zap.Int("entries", len(entries)))
	return entries, nil
}

// SearchSource queries a vendor's search page once per target keyword and renders the
// first hit as "<name> $<price>"
type SearchSource struct {
	vendor        string
	url           string
	charset       string
	queryParam    string
	nameSelector  string
	priceSelector string
	client        *Client
}

// SearchSelectors names the elements read from a search result page
type SearchSelectors struct {
	QueryParam string
	Name       string
	Price      string
}

// NewSearchSource creates a per-keyword search source
func NewSearchSource(vendor, url, charset string, selectors SearchSelectors, client *Client) *SearchSource {
	if selectors.QueryParam == "" {
		selectors.QueryParam = defaultQueryParam
	}
	if selectors.Name == "" {
		selectors.Name = defaultNameSelector
	}
	if selectors.Price == "" {
		selectors.Price = defaultPriceSelector
	}
	return &SearchSource{
		vendor:        vendor,
		url:           url,
		charset:       charset,
		queryParam:    selectors.QueryParam,
		nameSelector:  selectors.Name,
		priceSelector: selectors.Price,
		client:        client,
	}
}

func (s *SearchSource) Vendor() string { return s.vendor }

// Fetch searches every target keyword. A keyword whose search fails is skipped;
// the fetch fails only when every search does.
func (s *SearchSource) Fetch(ctx context.Context, targets []domain.TargetDescriptor) ([]domain.CatalogEntry, error) {
	log := zap.L().With(zap.String("vendor", s.vendor))

	var (
		texts    []string
		failures int
		lastErr  error
	)
	for _, target := range targets {
		text, err := s.search(ctx, target.Keyword)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("catalog: search failed", zap.String("keyword", target.Keyword), zap.Error(err))
			failures++
			lastErr = err
			continue
		}
		if text == "" {
			log.Debug("catalog: no search result", zap.String("keyword", target.Keyword))
			continue
		}
		texts = append(texts, text)
	}

	if len(targets) > 0 && failures == len(targets) {
		return nil, eris.Wrapf(lastErr, "%s: every search failed", s.vendor)
	}

	entries := ToEntries(texts)
	log.Info("catalog: search results fetched", zap.Int("entries", len(entries)), zap.Int("failed_keywords", failures))
	return entries, nil
}

func (s *SearchSource) search(ctx context.Context, keyword string) (string, error) {
	body, err := s.client.Get(ctx, s.url, map[string]string{s.queryParam: keyword}, s.charset)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrapf(domain.ErrCatalogFetch, "%s: parse html: %v", s.vendor, err)
	}

	price := doc.Find(s.priceSelector).First()
	if price.Length() == 0 {
		return "", nil
	}
	name := strings.TrimSpace(doc.Find(s.nameSelector).First().Text())
	if name == "" {
		name = keyword
	}
	return RenderListing(name, price.Text()), nil
}

// FileSource reads listings from a newline-separated file, one listing per line
type FileSource struct {
	vendor string
	path   string
}

// NewFileSource creates a source backed by a local file
func NewFileSource(vendor, path string) *FileSource {
	return &FileSource{vendor: vendor, path: path}
}

func (s *FileSource) Vendor() string { return s.vendor }

// Fetch reads the file on every call so edits are picked up between runs
func (s *FileSource) Fetch(ctx context.Context, _ []domain.TargetDescriptor) ([]domain.CatalogEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(domain.ErrCatalogFetch, "%s: open %s: %v", s.vendor, s.path, err)
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		texts = append(texts, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(domain.ErrCatalogFetch, "%s: read %s: %v", s.vendor, s.path, err)
	}

	return ToEntries(texts), nil
}
