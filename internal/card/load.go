package card

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxSourceSize bounds how much of a card source is read
const maxSourceSize = 1 << 20

// LoadError reports that a card source could not be fetched or parsed
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading cards from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Format identifies the encoding of a card source
type Format int

const (
	FormatJSON Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	default:
		return "json"
	}
}

// FormatFor picks the encoding from the extension of a path or URL path.
// Anything that is not .toml is treated as JSON.
func FormatFor(name string) Format {
	if strings.EqualFold(path.Ext(name), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

// tomlFile is the TOML layout: a list of [[card]] tables
type tomlFile struct {
	Cards []Definition `toml:"card"`
}

// Loader fetches card sources. The zero value uses http.DefaultClient.
type Loader struct {
	Client *http.Client
}

// Load reads card definitions from a file path or an http(s) URL using a
// default Loader. It does not validate them; see Validate.
func Load(ctx context.Context, source string) ([]Definition, error) {
	return (&Loader{}).Load(ctx, source)
}

// Load reads card definitions from source. Any failure is a *LoadError.
func (l *Loader) Load(ctx context.Context, source string) ([]Definition, error) {
	if source == "" {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("no card source configured")}
	}

	var (
		data   []byte
		format Format
		err    error
	)
	if u, perr := url.Parse(source); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		format = FormatFor(u.Path)
		data, err = l.fetch(ctx, source)
	} else {
		format = FormatFor(source)
		data, err = readFile(source)
	}
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	defs, err := Decode(data, format)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return defs, nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return readLimited(resp.Body)
}

func readFile(name string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// readLimited reads all of r, failing rather than truncating when r holds
// more than maxSourceSize bytes
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSourceSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSourceSize {
		return nil, fmt.Errorf("source exceeds %d bytes", maxSourceSize)
	}
	return data, nil
}

// Decode parses raw card data in the given format
func Decode(data []byte, format Format) ([]Definition, error) {
	switch format {
	case FormatTOML:
		var file tomlFile
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		return file.Cards, nil
	default:
		var defs []Definition
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
		return defs, nil
	}
}
