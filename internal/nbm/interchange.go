package nbm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// interchange is the JSON document written by Export and read by Import.
type interchange struct {
	ListName string   `json:"list_name"`
	Content  []Record `json:"content"`
}

// Export writes the list to path in the JSON interchange format.
func (l *ResourceList) Export(path string) error {
	doc := interchange{ListName: l.Name, Content: l.Records()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding list %q: %w", l.Name, err)
	}
	data = append(data, '\n')

	if err := writeFile(path, bytes.NewReader(data), 0644, time.Time{}); err != nil {
		return fmt.Errorf("exporting list %q: %w", l.Name, err)
	}
	l.env.logger.Info("list exported", "list", l.Name, "path", path, "items", len(l.items))
	return nil
}

// Import reads a list written by Export. Missing optional fields are
// treated as "never backed up", "not compressed" and "not a member".
func Import(path string, opts ...Option) (*ResourceList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc interchange
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	e := newEnv(opts)
	l, err := listFromRecords(doc.ListName, doc.Content, e)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	e.logger.Info("list imported", "list", l.Name, "path", path, "items", l.Len())
	return l, nil
}
