// Package materials syncs external chapter-material references
// (OneNote-backed notes via Microsoft Graph) so placed study blocks
// and learning patterns can link back to the chapter's notes.
package materials

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const graphAPIBase = "https://graph.microsoft.com/v1.0"

// chapterSlugRe matches the chapter naming rule ("chapter03") at the
// start of a note title.
var chapterSlugRe = regexp.MustCompile(`^chapter[0-9]{2}`)

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) GetCollections(accessToken string) ([]Collection, error) {
	url := fmt.Sprintf("%s/me/onenote/notebooks", graphAPIBase)

	var response CollectionsResponse
	if err := c.makeRequest(accessToken, url, &response); err != nil {
		return nil, fmt.Errorf("get collections: %w", err)
	}

	return response.Value, nil
}

func (c *Client) GetSections(accessToken, collectionID string) ([]Section, error) {
	url := fmt.Sprintf("%s/me/onenote/notebooks/%s/sections", graphAPIBase, collectionID)

	var response SectionsResponse
	if err := c.makeRequest(accessToken, url, &response); err != nil {
		return nil, fmt.Errorf("get sections (collection_id: %s): %w", collectionID, err)
	}

	return response.Value, nil
}

func (c *Client) GetNotes(accessToken, sectionID string) ([]Note, error) {
	url := fmt.Sprintf("%s/me/onenote/sections/%s/pages", graphAPIBase, sectionID)

	var response NotesResponse
	if err := c.makeRequest(accessToken, url, &response); err != nil {
		return nil, fmt.Errorf("get notes (section_id: %s): %w", sectionID, err)
	}

	return response.Value, nil
}

// ChapterRefs filters a section's notes down to those following the
// chapter slug convention and resolves each to a Ref.
func (c *Client) ChapterRefs(accessToken, sectionID string) ([]Ref, error) {
	notes, err := c.GetNotes(accessToken, sectionID)
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(notes))
	for _, n := range notes {
		slug := chapterSlugRe.FindString(strings.TrimSpace(n.Title))
		if slug == "" {
			continue
		}
		refs = append(refs, Ref{
			NoteID:      n.ID,
			Title:       n.Title,
			SectionID:   sectionID,
			ChapterSlug: slug,
		})
	}

	return refs, nil
}

func (c *Client) makeRequest(accessToken, url string, result interface{}) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request (url: %s): %w", url, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request (url: %s): %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed (url: %s, status: %d): %s", url, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response (url: %s): %w", url, err)
	}

	return nil
}
