package render

import (
	"fmt"
	"net/url"
)

func iconURL(format string, image string) string {
	if image == "" {
		image = "default"
	}
	return fmt.Sprintf(format, url.PathEscape(image))
}
