package blogdesk

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

type SlugPath struct {
	Slug         string
	FileTimePath string
	FileTime     *time.Time
}

func hasFileTimeInSlug(slug string) bool {
	return len(slug) > 11 && slug[4] == '-' && slug[7] == '-' && slug[10] == '-'
}

// SlugifyPath transforms the path of a markdown file into a post slug.
// - It trims `rootPath` from the beginning of `fullPath` to get the relative path.
// - It removes the file extension.
// - If the file name starts with a date (2006-01-02-), the date is extracted and removed from the slug.
// - It trims the "/index" suffix if it exists, so the directory name is used instead.
// - Each remaining path part is slugified with the slug package and the parts are joined with "-",
//   because a slug is a single URL segment.
func SlugifyPath(rootPath, fullPath string) SlugPath {
	if fullPath == "" {
		return SlugPath{}
	}

	relPath := strings.TrimPrefix(filepath.ToSlash(fullPath), filepath.ToSlash(rootPath))
	relPath = strings.TrimSpace(strings.Trim(relPath, "/"))

	if extension := filepath.Ext(relPath); extension != "" {
		relPath = strings.TrimSuffix(relPath, extension)
	}

	// If the path ends with "/index", remove it, we'll use the directory name as the slug
	relPath = strings.TrimSuffix(relPath, "/index")

	parts := strings.Split(relPath, "/")
	last := parts[len(parts)-1]

	var fileTime *time.Time
	fileTimePath := ""
	if hasFileTimeInSlug(last) {
		possibleDatePath := last[:10]
		if parsedTime, err := time.Parse("2006-01-02", possibleDatePath); err == nil {
			fileTime = &parsedTime
			fileTimePath = possibleDatePath
			parts[len(parts)-1] = last[11:]
		}
	}

	slugParts := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := slug.Make(part); s != "" {
			slugParts = append(slugParts, s)
		}
	}

	return SlugPath{
		Slug:         strings.Join(slugParts, "-"),
		FileTime:     fileTime,
		FileTimePath: fileTimePath,
	}
}

// SuggestSlug returns a URL-safe slug derived from a title.
func SuggestSlug(title string) string {
	return slug.Make(title)
}

// IsSlug reports whether s is already in canonical slug form.
func IsSlug(s string) bool {
	return slug.IsSlug(s)
}
