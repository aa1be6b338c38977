package capture

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// harArchive is the subset of HAR 1.2 needed to rebuild exchanges.
type harArchive struct {
	Log *struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

type harEntry struct {
	Request struct {
		Method   string      `json:"method"`
		URL      string      `json:"url"`
		Headers  []harHeader `json:"headers"`
		PostData *struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding,omitempty"`
		} `json:"postData,omitempty"`
	} `json:"request"`
	Response *struct {
		Status  int         `json:"status"`
		Headers []harHeader `json:"headers"`
		Content struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding,omitempty"`
		} `json:"content"`
	} `json:"response"`
}

type harHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// harReader serves exchanges from a fully decoded HAR archive.
type harReader struct {
	closer  io.Closer
	entries []harEntry
	next    int
}

func newHARReader(br *bufio.Reader, closer io.Closer, path string) (*harReader, error) {
	var archive harArchive
	if err := json.NewDecoder(br).Decode(&archive); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	if archive.Log == nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, errors.New("missing log object"))
	}
	return &harReader{closer: closer, entries: archive.Log.Entries}, nil
}

func (r *harReader) Next() (*Exchange, error) {
	if r.next >= len(r.entries) {
		return nil, io.EOF
	}
	entry := r.entries[r.next]
	r.next++
	return harToExchange(entry), nil
}

func (r *harReader) Close() error {
	return r.closer.Close()
}

func harToExchange(entry harEntry) *Exchange {
	ex := &Exchange{
		Method: entry.Request.Method,
		Path:   entry.Request.URL,
	}

	if u, err := url.Parse(entry.Request.URL); err == nil {
		ex.Host = u.Hostname()
		ex.Path = u.EscapedPath()
		if u.RawQuery != "" || u.ForceQuery {
			ex.Path += "?" + u.RawQuery
		}
	}

	if pd := entry.Request.PostData; pd != nil {
		ex.RequestContentType = pd.MimeType
		ex.RequestBody = harText(pd.Text, pd.Encoding)
	}
	if ex.RequestContentType == "" {
		ex.RequestContentType = harHeaderValue(entry.Request.Headers, "content-type")
	}

	if resp := entry.Response; resp != nil {
		ex.Status = resp.Status
		ex.ResponseContentType = resp.Content.MimeType
		ex.ResponseBody = harText(resp.Content.Text, resp.Content.Encoding)
	}

	return ex
}

// harText returns the body bytes. Undecodable base64 counts as no body.
func harText(text, encoding string) []byte {
	if text == "" {
		return nil
	}
	if encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil
		}
		return decoded
	}
	return []byte(text)
}

func harHeaderValue(headers []harHeader, name string) string {
	pairs := make([][2]string, len(headers))
	for i, h := range headers {
		pairs[i] = [2]string{h.Name, h.Value}
	}
	return headerValue(pairs, name)
}
