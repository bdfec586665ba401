package preprocessor

import (
	"os"
	"sync"
)

// FileCache maps canonical paths to raw file text. One cache may serve any
// number of concurrent sessions; the first reader of a path publishes its
// text and every later reader reuses it.
type FileCache struct {
	texts sync.Map
}

func NewFileCache() *FileCache { return &FileCache{} }

func (c *FileCache) Load(path string) (string, error) {
	if v, ok := c.texts.Load(path); ok {
		return v.(string), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	v, _ := c.texts.LoadOrStore(path, string(data))
	return v.(string), nil
}

// Len reports how many files are cached.
func (c *FileCache) Len() int {
	n := 0
	c.texts.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
