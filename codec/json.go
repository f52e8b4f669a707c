// JSON codec.
//
// Records are JSON objects, so the tag is spliced in textually: the object's
// opening brace is replaced by `{"<key>":<tag>,`. goccy/go-json emits
// compact output, which keeps the splice a plain byte append.
package codec

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

// JSON is the default text codec.
var JSON Codec = &jsonCodec{}

type jsonCodec struct {
	mu   sync.Mutex // guards echo
	echo io.Writer
}

// JSONEcho returns a JSON codec that additionally writes every tagged
// record it produces to w, one per line. Write errors on w are ignored.
func JSONEcho(w io.Writer) Codec {
	return &jsonCodec{echo: w}
}

func (c *jsonCodec) Name() string { return NameJSON }

func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *jsonCodec) Tag(record []byte, key string, tag uint16) ([]byte, error) {
	rec := bytes.TrimSpace(record)
	if len(rec) < 2 || rec[0] != '{' || rec[len(rec)-1] != '}' {
		return nil, ErrNotRecord
	}
	k, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	body := bytes.TrimSpace(rec[1 : len(rec)-1])

	out := make([]byte, 0, len(rec)+len(k)+8)
	out = append(out, '{')
	out = append(out, k...)
	out = append(out, ':')
	out = strconv.AppendUint(out, uint64(tag), 10)
	if len(body) > 0 {
		out = append(out, ',')
		out = append(out, body...)
	}
	out = append(out, '}')

	if c.echo != nil {
		c.mu.Lock()
		_, _ = c.echo.Write(out)
		_, _ = c.echo.Write([]byte{'\n'})
		c.mu.Unlock()
	}
	return out, nil
}
