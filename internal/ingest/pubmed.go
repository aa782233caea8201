package ingest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/models"
)

// defaultEUtilsBaseURL is the NCBI Entrez E-utilities endpoint. Overridable
// in tests via NewPubMedClientWithBaseURL.
const defaultEUtilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubmedFetchBatchSize caps the number of PMIDs per efetch request. NCBI
// recommends keeping GET URLs short; 200 IDs stays well under the limit.
const pubmedFetchBatchSize = 200

// PubMedClient downloads article abstracts from PubMed via the Entrez
// E-utilities (esearch to find PMIDs, efetch to pull the records). NCBI asks
// unauthenticated clients to identify themselves with a tool name and a
// contact email, and to stay under 3 requests per second; the client tags
// every request and retries transient failures with exponential backoff.
type PubMedClient struct {
	baseURL string
	email   string
	client  *http.Client
	logger  *zap.Logger
}

// NewPubMedClient returns a client for the public NCBI endpoint. email is
// sent on every request per NCBI's usage policy; it may be empty.
func NewPubMedClient(email string, logger *zap.Logger) *PubMedClient {
	return NewPubMedClientWithBaseURL(defaultEUtilsBaseURL, email, logger)
}

// NewPubMedClientWithBaseURL is NewPubMedClient with a custom endpoint.
func NewPubMedClientWithBaseURL(baseURL, email string, logger *zap.Logger) *PubMedClient {
	return &PubMedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Search runs an esearch query and returns up to max matching PMIDs, most
// recent first (PubMed's default sort).
func (c *PubMedClient) Search(ctx context.Context, term string, max int) ([]string, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("search term is empty")
	}
	if max <= 0 {
		max = 20
	}
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", fmt.Sprintf("%d", max))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	var result struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse esearch response: %w", err)
	}
	return result.ESearchResult.IDList, nil
}

// FetchAbstracts retrieves the title, abstract, and publication year for the
// given PMIDs via efetch. Articles without an abstract are skipped; there is
// nothing to index for them.
func (c *PubMedClient) FetchAbstracts(ctx context.Context, pmids []string) ([]*models.DocumentInput, error) {
	var docs []*models.DocumentInput
	for start := 0; start < len(pmids); start += pubmedFetchBatchSize {
		end := start + pubmedFetchBatchSize
		if end > len(pmids) {
			end = len(pmids)
		}
		batch, err := c.fetchBatch(ctx, pmids[start:end])
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}

// Download is Search followed by FetchAbstracts.
func (c *PubMedClient) Download(ctx context.Context, term string, max int) ([]*models.DocumentInput, error) {
	pmids, err := c.Search(ctx, term, max)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	c.logger.Info("pubmed search complete",
		zap.String("term", term), zap.Int("pmids", len(pmids)))
	return c.FetchAbstracts(ctx, pmids)
}

// pubmedArticleSet mirrors the slice of the efetch XML we care about.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string   `xml:"MedlineCitation>PMID"`
	Title    string   `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract []string `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Year     string   `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
}

func (c *PubMedClient) fetchBatch(ctx context.Context, pmids []string) ([]*models.DocumentInput, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parse efetch response: %w", err)
	}

	docs := make([]*models.DocumentInput, 0, len(set.Articles))
	for _, art := range set.Articles {
		abstract := strings.TrimSpace(strings.Join(art.Abstract, "\n"))
		if art.PMID == "" || abstract == "" {
			c.logger.Debug("skipping article without abstract", zap.String("pmid", art.PMID))
			continue
		}
		docs = append(docs, &models.DocumentInput{
			ID:      "PMID_" + art.PMID,
			Title:   strings.TrimSpace(art.Title),
			Source:  "PubMed",
			Content: abstract,
			Year:    art.Year,
			URL:     fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", art.PMID),
			Metadata: map[string]interface{}{
				"pmid": art.PMID,
			},
		})
	}
	return docs, nil
}

// get issues a GET against path with params, retrying rate-limit and 5xx
// responses the same way the embedding client retries the OpenAI API.
func (c *PubMedClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("tool", "medrag")
	if c.email != "" {
		params.Set("email", c.email)
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("eutils returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("eutils returned %d", resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
