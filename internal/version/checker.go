package version

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/studiowebux/apitest/internal/executor"
	"github.com/studiowebux/apitest/internal/jsonpath"
)

// Build-time values, set with -ldflags "-X .../internal/version.Version=...".
// ReleasesURL is a placeholder for the release feed of the published build;
// AT_RELEASES_URL overrides it at run time.
var (
	Version     = "0.1.0"
	ReleasesURL = "https://api.github.com/repos/studiowebux/apitest/releases/latest"
)

const checkTimeout = 5 * time.Second

// UserAgent is the default User-Agent sent by the engine
func UserAgent() string {
	return "apitest/" + Version
}

// Release describes the latest published release
type Release struct {
	Version string
	URL     string
	Newer   bool // whether Version is newer than the running build
}

// CheckForUpdate fetches the latest release from releasesURL and compares it to currentVersion
func CheckForUpdate(ctx context.Context, exec *executor.Executor, releasesURL, currentVersion string) (*Release, error) {
	resp, err := exec.Execute(ctx, &executor.Request{
		Method:  "GET",
		URL:     releasesURL,
		Headers: map[string]string{"Accept": "application/json", "User-Agent": "apitest/" + currentVersion},
		Timeout: checkTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch latest release")
	}
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if !resp.IsJSON {
		return nil, errors.New("release response is not JSON")
	}

	tag, _ := jsonpath.Lookup(resp.Body, "tag_name").(string)
	url, _ := jsonpath.Lookup(resp.Body, "html_url").(string)

	latest := strings.TrimPrefix(tag, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	return &Release{
		Version: latest,
		URL:     url,
		Newer:   latest != "" && isNewerVersion(latest, current),
	}, nil
}

// isNewerVersion compares two semantic versions and returns true if latest > current
// Supports versions like "0.0.28", "1.2.3", "0.0.29-dev", etc.
func isNewerVersion(latest, current string) bool {
	latestParts := parseVersion(latest)
	currentParts := parseVersion(current)

	maxLen := max(len(latestParts), len(currentParts))
	for len(latestParts) < maxLen {
		latestParts = append(latestParts, 0)
	}
	for len(currentParts) < maxLen {
		currentParts = append(currentParts, 0)
	}

	for i := 0; i < maxLen; i++ {
		if latestParts[i] > currentParts[i] {
			return true
		}
		if latestParts[i] < currentParts[i] {
			return false
		}
	}

	return false
}

// parseVersion parses a version string into integer parts.
// Pre-release and build metadata (after "-" or "+") are dropped.
func parseVersion(version string) []int {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		result = append(result, num)
	}

	return result
}
