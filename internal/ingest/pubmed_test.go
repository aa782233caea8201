package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

const esearchFixture = `{
	"esearchresult": {
		"count": "2",
		"idlist": ["38990001", "38990002"]
	}
}`

const efetchFixture = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38990001</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2023</Year></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Vitamin D supplementation in adults</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Vitamin D deficiency is common.</AbstractText>
          <AbstractText Label="CONCLUSION">Supplementation improved serum levels.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38990002</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2024</Year></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>An editorial without an abstract</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newPubMedTestServer(t *testing.T) (*httptest.Server, *map[string]string) {
	t.Helper()
	seenParams := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, vals := range r.URL.Query() {
			seenParams[key] = vals[0]
		}
		switch r.URL.Path {
		case "/esearch.fcgi":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(esearchFixture))
		case "/efetch.fcgi":
			w.Header().Set("Content-Type", "text/xml")
			_, _ = w.Write([]byte(efetchFixture))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &seenParams
}

func TestPubMedClient_Search(t *testing.T) {
	srv, seen := newPubMedTestServer(t)
	client := NewPubMedClientWithBaseURL(srv.URL, "dev@medintel.example", zap.NewNop())

	pmids, err := client.Search(context.Background(), "vitamin d deficiency", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(pmids) != 2 || pmids[0] != "38990001" || pmids[1] != "38990002" {
		t.Errorf("unexpected PMIDs: %v", pmids)
	}
	if (*seen)["db"] != "pubmed" {
		t.Errorf("expected db=pubmed, got %q", (*seen)["db"])
	}
	if (*seen)["retmax"] != "10" {
		t.Errorf("expected retmax=10, got %q", (*seen)["retmax"])
	}
	if (*seen)["email"] != "dev@medintel.example" {
		t.Errorf("expected contact email on the request, got %q", (*seen)["email"])
	}
	if (*seen)["tool"] != "medrag" {
		t.Errorf("expected tool=medrag, got %q", (*seen)["tool"])
	}
}

func TestPubMedClient_SearchEmptyTerm(t *testing.T) {
	client := NewPubMedClient("", zap.NewNop())
	if _, err := client.Search(context.Background(), "   ", 5); err == nil {
		t.Error("expected error for empty search term")
	}
}

func TestPubMedClient_FetchAbstracts(t *testing.T) {
	srv, seen := newPubMedTestServer(t)
	client := NewPubMedClientWithBaseURL(srv.URL, "", zap.NewNop())

	docs, err := client.FetchAbstracts(context.Background(), []string{"38990001", "38990002"})
	if err != nil {
		t.Fatalf("FetchAbstracts failed: %v", err)
	}
	// The second article has no abstract and must be dropped.
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc := docs[0]
	if doc.ID != "PMID_38990001" {
		t.Errorf("expected ID PMID_38990001, got %q", doc.ID)
	}
	if doc.Title != "Vitamin D supplementation in adults" {
		t.Errorf("unexpected title: %q", doc.Title)
	}
	if doc.Source != "PubMed" {
		t.Errorf("expected source PubMed, got %q", doc.Source)
	}
	if doc.Year != "2023" {
		t.Errorf("expected year 2023, got %q", doc.Year)
	}
	if doc.URL != "https://pubmed.ncbi.nlm.nih.gov/38990001/" {
		t.Errorf("unexpected URL: %q", doc.URL)
	}
	if doc.Metadata["pmid"] != "38990001" {
		t.Errorf("expected pmid metadata, got %v", doc.Metadata["pmid"])
	}
	want := "Vitamin D deficiency is common.\nSupplementation improved serum levels."
	if doc.Content != want {
		t.Errorf("labelled abstract sections should join with newlines, got %q", doc.Content)
	}
	if (*seen)["id"] != "38990001,38990002" {
		t.Errorf("expected comma-joined PMIDs, got %q", (*seen)["id"])
	}
}

func TestPubMedClient_Download(t *testing.T) {
	srv, _ := newPubMedTestServer(t)
	client := NewPubMedClientWithBaseURL(srv.URL, "", zap.NewNop())

	docs, err := client.Download(context.Background(), "vitamin d", 10)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != "PMID_38990001" {
		t.Errorf("unexpected document: %q", docs[0].ID)
	}
}

func TestPubMedClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	client := NewPubMedClientWithBaseURL(srv.URL, "", zap.NewNop())

	if _, err := client.Search(context.Background(), "vitamin d", 5); err == nil {
		t.Error("expected error on 4xx response")
	}
}
