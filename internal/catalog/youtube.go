package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// YouTubeClient fetches playlist items from the YouTube Data API v3,
// following pagination until the playlist is exhausted.
type YouTubeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewYouTubeClient(apiKey string) *YouTubeClient {
	return &YouTubeClient{
		apiKey:     apiKey,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title        string `json:"title"`
			Position     int64  `json:"position"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *YouTubeClient) FetchPlaylist(ctx context.Context, id string) ([]Track, error) {
	var tracks []Track
	pageToken := ""

	for {
		page, err := c.fetchPage(ctx, id, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			vid := item.ContentDetails.VideoID
			sn := item.Snippet
			// Private and deleted entries carry no playable video
			if vid == "" || sn.Title == "Private video" || sn.Title == "Deleted video" {
				continue
			}
			thumbnail := sn.Thumbnails.Medium.URL
			if thumbnail == "" {
				thumbnail = sn.Thumbnails.Default.URL
			}
			tracks = append(tracks, Track{
				VideoID:      vid,
				Title:        sn.Title,
				Position:     sn.Position,
				Thumbnail:    thumbnail,
				ChannelTitle: sn.ChannelTitle,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			return tracks, nil
		}
	}
}

func (c *YouTubeClient) fetchPage(ctx context.Context, id, pageToken string) (*playlistItemsResponse, error) {
	params := url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {id},
		"maxResults": {"50"},
		"key":        {c.apiKey},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/playlistItems?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building playlist request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playlist request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("playlist request returned %d: %s", resp.StatusCode, body)
	}

	var page playlistItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding playlist response: %w", err)
	}
	return &page, nil
}
