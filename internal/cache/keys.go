package cache

import "strings"

// Key is a hierarchical query key. Invalidating a key also invalidates every
// key it is a prefix of.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// HasPrefix reports whether p is a leading part of k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

func StoresKey() Key {
	return Key{"stores"}
}

func StoreListsKey() Key {
	return Key{"stores", "list"}
}

// StoreListKey identifies one page of the store directory. filters must be a
// canonical encoding such as url.Values.Encode.
func StoreListKey(filters string) Key {
	return Key{"stores", "list", filters}
}

func StoreDetailsKey() Key {
	return Key{"stores", "detail"}
}

func StoreDetailKey(id string) Key {
	return Key{"stores", "detail", id}
}

func StoreAnalyticsKey(id string) Key {
	return Key{"stores", "detail", id, "analytics"}
}

func AnalyticsOverviewKey() Key {
	return Key{"analytics", "overview"}
}
