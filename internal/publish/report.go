package publish

import (
	"fmt"
	"regexp"

	"github.com/mmr-tortoise/git-publish/internal/pm"
)

// DeriveBranchName computes the default target branch name:
// "npm/<branchOrTag>", suffixed with the package name when publishing
// from a monorepo subdirectory so sibling packages on the same source
// branch get distinct publish branches.
func DeriveBranchName(branchOrTag, packageName string, monorepo bool) string {
	if monorepo {
		return fmt.Sprintf("npm/%s-%s", branchOrTag, packageName)
	}
	return "npm/" + branchOrTag
}

// remoteURLPattern matches the git remote URL shapes in the wild:
//
//	git@github.com:org/repo.git        (scp-like)
//	ssh://git@github.com/org/repo.git
//	https://github.com/org/repo
//	git://github.com/org/repo.git
//	git+https://github.com/org/repo.git
//
// Capture groups: host, org, repo.
var remoteURLPattern = regexp.MustCompile(
	`^(?:git\+)?(?:(?:https?|git|ssh)://)?(?:[^@/]+@)?([^:/]+)[:/]([^:/]+)/([^/]+?)(?:\.git)?/?$`)

// hostPrefixes maps recognized hosting providers to the npm shorthand
// prefix for Git dependencies. GitHub's shorthand has no prefix.
var hostPrefixes = map[string]string{
	"github.com":    "",
	"gitlab.com":    "gitlab:",
	"bitbucket.org": "bitbucket:",
}

// RemoteShorthand derives the npm Git-dependency shorthand
// ("org/repo", "gitlab:org/repo", ...) from a remote URL. Returns
// ok=false for URLs that do not parse or belong to an unrecognized
// host; the install command is simply omitted in that case.
func RemoteShorthand(remoteURL string) (string, bool) {
	m := remoteURLPattern.FindStringSubmatch(remoteURL)
	if m == nil {
		return "", false
	}
	host, org, repo := m[1], m[2], m[3]

	prefix, ok := hostPrefixes[host]
	if !ok {
		return "", false
	}
	return prefix + org + "/" + repo, true
}

// InstallCommand builds the copy-pasteable install command for the
// published branch, or "" when the remote is not a recognized hosting
// shorthand. The argument is always single-quoted: branch names routinely
// contain "/" and package-name suffixes contain "@".
func InstallCommand(manager pm.Manager, remoteURL, branch string) string {
	shorthand, ok := RemoteShorthand(remoteURL)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s '%s#%s'", manager.InstallVerb(), shorthand, branch)
}
