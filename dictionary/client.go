package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Config конфигурация клиента словаря
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://api.dictionaryapi.dev/api/v2/entries/en/",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

const maxRetryInterval = 2 * time.Second

// Entry запись ответа dictionaryapi.dev
type Entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic"`
	Meanings []Meaning `json:"meanings"`
}

type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
}

type Definition struct {
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

// apiError тело ответа API при ошибке (например, 404)
type apiError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Client HTTP клиент словаря
type Client struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient создает клиента словаря
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Budget верхняя граница времени одного Lookup со всеми повторами
func (c *Client) Budget() time.Duration {
	attempts := time.Duration(c.config.MaxRetries + 1)
	return attempts*c.config.Timeout + attempts*maxRetryInterval
}

type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error occurred: %d %s - %s", e.code, http.StatusText(e.code), strings.TrimSpace(string(e.body)))
}

// Lookup возвращает отформатированное значение слова или текст ошибки.
// Никогда не возвращает ошибку: результат сразу публикуется.
func (c *Client) Lookup(ctx context.Context, word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return "Error: No word provided."
	}

	body, err := c.fetch(ctx, word)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusNotFound {
				return fmt.Sprintf("Sorry, couldn't find a definition for '%s'.", word)
			}
			return se.Error()
		}
		return fmt.Sprintf("Error fetching definition: %v", err)
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Title != "" {
			return fmt.Sprintf("%s: %s", apiErr.Title, apiErr.Message)
		}
		return "Error: Could not decode the server's response."
	}

	return Format(entries, word)
}

// fetch выполняет запрос с повтором при сетевых ошибках и ответах 5xx
func (c *Client) fetch(ctx context.Context, word string) ([]byte, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + url.PathEscape(word)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("dictionary request failed", zap.String("url", endpoint), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &statusError{code: resp.StatusCode, body: data}
			if resp.StatusCode >= 500 {
				return se
			}
			return backoff.Permanent(se)
		}

		body = data
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = maxRetryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.config.MaxRetries), ctx))
	return body, err
}

// Format превращает ответ API в читаемый текст
func Format(entries []Entry, original string) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No definitions found for '%s' or unexpected API response format.", original)
	}

	var lines []string
	for i, entry := range entries {
		word := entry.Word
		if word == "" {
			word = original
		}

		if i == 0 {
			lines = append(lines, "Word: "+word)
		} else {
			lines = append(lines, fmt.Sprintf("\n--- Alternative Entry for %s ---", word))
		}
		if entry.Phonetic != "" {
			lines = append(lines, "Phonetic: "+entry.Phonetic)
		}

		if len(entry.Meanings) == 0 {
			lines = append(lines, "  No specific meanings found in this entry.")
			continue
		}

		for _, meaning := range entry.Meanings {
			pos := meaning.PartOfSpeech
			if pos == "" {
				pos = "N/A"
			}
			lines = append(lines, fmt.Sprintf("\nAs %s:", capitalize(pos)))

			for n, def := range meaning.Definitions {
				text := def.Definition
				if text == "" {
					text = "No definition text."
				}
				lines = append(lines, fmt.Sprintf("  %d. %s", n+1, text))
				if def.Example != "" {
					lines = append(lines, fmt.Sprintf("     Example: \"%s\"", def.Example))
				}
			}
		}
	}

	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
