// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RootNotFoundId Id = iota + 1
	RootUnreadableId
	ManifestInvalidId
	ModuleNotInGraphId
	ConfigLoadFailedId
	SharedCacheUnavailableId
	ServerStartFailedId
	WatchFailedId
	InvalidOutputFormatId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	rootNotFoundIssue = &Issue{
		id: RootNotFoundId,
		mdMsg: `
# Root module not found!

The path you gave does not point to a module file.

## Things you can try:
- Check the path for typos; it must name a file, not a directory:
~~~
$ showrefs ./bin/App.exe
~~~
- Relative paths are resolved against the current directory.`,
	}

	rootUnreadableIssue = &Issue{
		id: RootUnreadableId,
		mdMsg: `
# Cannot read the root module!

The root module exists but its metadata could not be decoded, so no
graph was built. Whatever was shown before stays as it was.

## Things you can try:
- Binary modules need a manifest next to them, named after the module
  file plus ` + "`.cue`" + `:
~~~
$ showrefs manifest init App > bin/App.exe.cue
~~~
- Run with ` + "`--verbose`" + ` to see the decoding error.`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid module manifest!

A manifest did not match the module schema.

## Example manifest:
~~~cue
name:    "App"
version: "1.0.0.0"
references: [
	{name: "Core", version: "2.1.0.0"},
	{name: "Logging"},
]
attributes: {
	title:   "Sample application"
	company: "Example Corp"
}
~~~

## Things you can try:
- Module and reference names must not contain path separators.
- Unknown fields are rejected; check the spelling of every field.`,
	}

	moduleNotInGraphIssue = &Issue{
		id: ModuleNotInGraphId,
		mdMsg: `
# Module not in graph!

The module you asked about is not referenced, directly or transitively,
by the root module.

## Things you can try:
- List every module in the graph:
~~~
$ showrefs tree --oneline ./bin/App.exe
~~~
- Module names are case-sensitive.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

There was an error loading your showrefs configuration file.

## Things you can try:
- Check the syntax of your config file:
~~~
$ showrefs config path
~~~
- Reset to the default configuration:
~~~
$ showrefs config init
~~~
- Environment variables named ` + "`SHOWREFS_*`" + ` (also read from ` + "`.env`" + `)
  override file values.`,
	}

	sharedCacheUnavailableIssue = &Issue{
		id: SharedCacheUnavailableId,
		mdMsg: `
# Shared module cache unavailable!

The shared cache directory could not be determined. Resolution continues
with the root module's directory only.

## Things you can try:
- Point ` + "`SHOWREFS_SHARED_CACHE`" + ` at the cache directory.
- Or set ` + "`shared_cache.path`" + ` in your config file.`,
	}

	serverStartFailedIssue = &Issue{
		id: ServerStartFailedId,
		mdMsg: `
# Failed to start the SSH view server!

## Things you can try:
- Another process may be using the port; pick a different one:
~~~
$ showrefs serve --port 2223 ./bin/App.exe
~~~
- Use ` + "`--host 127.0.0.1`" + ` to listen on loopback only.`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# Watch mode failed!

The file watcher for the root module's directory stopped.

## Things you can try:
- On Linux, raise the inotify watch limit:
~~~
$ sysctl fs.inotify.max_user_watches
~~~
- Run without ` + "`--watch`" + ` to print the graph once.`,
	}

	invalidOutputFormatIssue = &Issue{
		id: InvalidOutputFormatId,
		mdMsg: `
# Unknown output format!

## Supported formats:
- ` + "`text`" + ` (default): styled tree
- ` + "`json`" + `, ` + "`yaml`" + `, ` + "`toml`" + `: the whole graph with its reverse index`,
	}

	issues = map[Id]*Issue{
		rootNotFoundIssue.Id():           rootNotFoundIssue,
		rootUnreadableIssue.Id():         rootUnreadableIssue,
		manifestInvalidIssue.Id():        manifestInvalidIssue,
		moduleNotInGraphIssue.Id():       moduleNotInGraphIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		sharedCacheUnavailableIssue.Id(): sharedCacheUnavailableIssue,
		serverStartFailedIssue.Id():      serverStartFailedIssue,
		watchFailedIssue.Id():            watchFailedIssue,
		invalidOutputFormatIssue.Id():    invalidOutputFormatIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
