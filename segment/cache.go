package segment

import "strconv"

// Cache deduplicates InitSegmentReferences by (URI, byte range), per
// component D. It is owned exclusively by one parser instance; there is
// no cross-parser sharing.
type Cache struct {
	byKey map[string]*InitSegmentReference
}

func NewCache() *Cache {
	return &Cache{byKey: make(map[string]*InitSegmentReference)}
}

func cacheKey(uri string, startByte int64, endByte *int64) string {
	k := uri + "|" + strconv.FormatInt(startByte, 10) + "|"
	if endByte != nil {
		k += strconv.FormatInt(*endByte, 10)
	}
	return k
}

// GetOrCreate returns the cached InitSegmentReference for (uri, startByte,
// endByte), constructing build() only on a cache miss.
func (c *Cache) GetOrCreate(uri string, startByte int64, endByte *int64, build func() *InitSegmentReference) *InitSegmentReference {
	key := cacheKey(uri, startByte, endByte)
	if ref, ok := c.byKey[key]; ok {
		return ref
	}
	ref := build()
	c.byKey[key] = ref
	return ref
}

// Clear releases every cached reference.
func (c *Cache) Clear() {
	c.byKey = make(map[string]*InitSegmentReference)
}

// Len reports the number of distinct init segments currently cached.
func (c *Cache) Len() int {
	return len(c.byKey)
}
