package mcpserver

// PostFormatContract describes the source format of an inkwell post.
// It is served both as the inkwell://post-format resource and by the
// get_post_contract tool.
const PostFormatContract = `# Inkwell Post Format

## File placement
- Posts live anywhere under the content root. The post key is the
  slash separated path relative to the root (e.g. ` + "`posts/hello.md`" + `).
- Only files with an accepted extension are posts (default: .md, .txt).
- Hidden files, editor backups, and VCS directories are ignored.

## Header
Every post starts with a YAML header between ` + "`---`" + ` fences:

` + "```yaml" + `
---
title: Hello World          # optional, falls back to the file stem
date: 2024-01-31            # required; YYYY-MM-DD or RFC 3339
tags: [go, blog]            # optional list of strings
short: One line summary     # optional
draft: false                # optional; drafts are hidden from listings
---
` + "```" + `

A file without a header, with malformed YAML, or without a valid date is
skipped and logged. The rest of the tree keeps serving.

## Body
- CommonMark Markdown with GitHub tables and strikethrough.
- Inline tags are written as ` + "`#tag`" + ` and merged with header tags.
- Wikilinks ` + "`[[target]]`" + ` or ` + "`[[target|label]]`" + ` link to other posts and feed
  the backlink index.

## Example

` + "```markdown" + `
---
title: Weekly notes
date: 2025-01-20
tags: [journal]
---
# Weekly notes

Follow up on [[posts/roadmap|the roadmap]] and #planning.
` + "```" + `
`
