package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bobarin/papervid/internal/models"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// GitHub README extraction
// Finds repository links in paper text, fetches each repo's README through
// the GitHub contents API, and produces a simplified summary per README.
// Fully decoupled from the video pipeline.
// ---------------------------------------------------------------------------

const (
	githubAPIBase      = "https://api.github.com"
	githubFetchWorkers = 4

	// Retry configuration for the contents API
	githubMaxRetries = 2
	githubRetryDelay = 2 * time.Second
)

// readmeCandidates are tried in order until one resolves.
var readmeCandidates = []string{"README.md", "README.rst", "README.txt", "README", "readme.md"}

var githubLinkPattern = regexp.MustCompile(`https?://github\.com/[^\s<>"')\]]+`)

// textCompleter is the slice of the LLM client the extractor needs.
type textCompleter interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// GitHubService extracts and simplifies repository READMEs referenced by a
// paper.
type GitHubService struct {
	llm    textCompleter
	token  string // optional, raises the API rate limit
	client *http.Client
}

func NewGitHubService(llm textCompleter, token string) *GitHubService {
	return &GitHubService{
		llm:    llm,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Process runs the full extraction: link discovery, README fetch, and
// simplification. Per-repo failures are recorded in the result rather than
// failing the whole extraction; an error is returned only when link discovery
// itself fails.
func (s *GitHubService) Process(ctx context.Context, paperText string) (*models.GitHubExtraction, error) {
	links, err := s.FindGitHubLinks(ctx, paperText)
	if err != nil {
		return nil, fmt.Errorf("failed to find github links: %w", err)
	}

	extraction := &models.GitHubExtraction{
		Links:   links,
		Readmes: make([]models.ReadmeResult, len(links)),
	}

	if len(links) == 0 {
		log.Printf("[GitHub] No repository links found")
		return extraction, nil
	}

	log.Printf("[GitHub] Found %d repository links", len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(githubFetchWorkers)

	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			result := models.ReadmeResult{URL: link}

			original, simplified, err := s.fetchAndSimplify(gctx, link)
			if err != nil {
				log.Printf("[GitHub] %s: %v", link, err)
				msg := err.Error()
				result.Error = &msg
			} else {
				result.Original = original
				result.Simplified = simplified
			}

			extraction.Readmes[i] = result
			return nil
		})
	}

	// Workers never return errors; per-repo failures live in the results.
	g.Wait()

	return extraction, nil
}

func (s *GitHubService) fetchAndSimplify(ctx context.Context, link string) (original, simplified string, err error) {
	owner, repo, err := ParseGitHubURL(link)
	if err != nil {
		return "", "", err
	}

	original, err = s.FetchREADME(ctx, owner, repo)
	if err != nil {
		return "", "", err
	}

	simplified, err = s.SimplifyREADME(ctx, original)
	if err != nil {
		// The raw README is still useful when the LLM pass fails.
		log.Printf("[GitHub] Simplification failed for %s/%s, keeping raw README: %v", owner, repo, err)
		return original, original, nil
	}

	return original, simplified, nil
}

const findLinksPrompt = `Find all links to GitHub repositories in the following text. Papers often reference their code with a repository URL; the URL may be split across lines or followed by punctuation. Return only the links, one per line, with no other text. If there are none, return an empty response.

Text:
%s`

// FindGitHubLinks asks the LLM for repository links in the text and merges
// them with a regex scan, deduplicated in first-seen order.
func (s *GitHubService) FindGitHubLinks(ctx context.Context, text string) ([]string, error) {
	seen := make(map[string]bool)
	var links []string

	add := func(raw string) {
		link := CleanGitHubLink(raw)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	}

	response, err := s.llm.Chat(ctx, fmt.Sprintf(findLinksPrompt, text))
	if err != nil {
		// The regex scan still runs; LLM discovery is an enhancement for
		// links mangled by PDF extraction.
		log.Printf("[GitHub] LLM link discovery failed, using regex scan only: %v", err)
	} else {
		for _, line := range strings.Split(response, "\n") {
			for _, match := range githubLinkPattern.FindAllString(line, -1) {
				add(match)
			}
		}
	}

	for _, match := range githubLinkPattern.FindAllString(text, -1) {
		add(match)
	}

	return links, nil
}

// CleanGitHubLink strips trailing punctuation that PDF text extraction tends
// to glue onto URLs. Returns "" if nothing usable remains.
func CleanGitHubLink(link string) string {
	link = strings.TrimSpace(link)
	link = strings.TrimRight(link, ".,;:!?)]}>\"'")
	link = strings.TrimSuffix(link, "/")
	if !strings.Contains(link, "github.com/") {
		return ""
	}
	return link
}

// ParseGitHubURL extracts the owner and repository name from a GitHub URL.
// Deep links (tree/blob/issues paths) resolve to their repository.
func ParseGitHubURL(link string) (owner, repo string, err error) {
	idx := strings.Index(link, "github.com/")
	if idx < 0 {
		return "", "", fmt.Errorf("not a github url: %s", link)
	}

	path := strings.Trim(link[idx+len("github.com/"):], "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("url has no owner/repo: %s", link)
	}

	repo = strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("url has no owner/repo: %s", link)
	}

	return parts[0], repo, nil
}

type githubContentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// FetchREADME retrieves the repository README via the contents API, trying
// common filenames in order.
func (s *GitHubService) FetchREADME(ctx context.Context, owner, repo string) (string, error) {
	for _, name := range readmeCandidates {
		content, err := s.fetchFile(ctx, owner, repo, name)
		if err == nil {
			log.Printf("[GitHub] Fetched %s from %s/%s (%d bytes)", name, owner, repo, len(content))
			return content, nil
		}
	}
	return "", fmt.Errorf("no readme found in %s/%s", owner, repo)
}

func (s *GitHubService) fetchFile(ctx context.Context, owner, repo, path string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", githubAPIBase, owner, repo, path)

	var lastErr error
	var content githubContentResponse
	for attempt := 0; attempt <= githubMaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[GitHub] Retry %d/%d for %s/%s/%s", attempt, githubMaxRetries, owner, repo, path)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(githubRetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("github request failed: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("github returned status %d for %s", resp.StatusCode, path)
			// Retry only server-side and rate-limit responses. A 404 means
			// this candidate name doesn't exist — move on immediately.
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				continue
			}
			return "", lastErr
		}

		err = json.NewDecoder(resp.Body).Decode(&content)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to decode github response: %w", err)
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return "", lastErr
	}

	if content.Encoding != "base64" {
		return "", fmt.Errorf("unexpected content encoding: %s", content.Encoding)
	}

	// The contents API wraps base64 payloads with newlines.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("failed to decode readme content: %w", err)
	}

	if len(decoded) == 0 {
		return "", fmt.Errorf("readme is empty")
	}

	return string(decoded), nil
}

const simplifyPrompt = `Simplify the following README. Keep what the project does, how to install it, and how to run it. Drop badges, contribution guidelines, licenses, and citation blocks. Return only the simplified text.

README:
%s`

// SimplifyREADME produces a condensed version of a README via the LLM.
func (s *GitHubService) SimplifyREADME(ctx context.Context, readme string) (string, error) {
	simplified, err := s.llm.Chat(ctx, fmt.Sprintf(simplifyPrompt, readme))
	if err != nil {
		return "", fmt.Errorf("failed to simplify readme: %w", err)
	}

	simplified = strings.TrimSpace(simplified)
	if simplified == "" {
		return "", fmt.Errorf("simplification produced empty text")
	}

	return simplified, nil
}
