package mcpserver

// LibraryFormat describes how a Shelf library is organised and how text
// notes are written, for LLM consumers creating or filing content.
const LibraryFormat = `# Shelf Library Format

A Shelf library is a tree of nodes. Every node has an id, a parent and a
position among all nodes.

## Node kinds

| kind      | holds                                                        |
|-----------|--------------------------------------------------------------|
| text      | plain text (Markdown welcome)                                 |
| image     | a stored image file and an optional description               |
| anchor    | a web bookmark: URL, title, description                       |
| directory | a name; groups other nodes                                    |

## Placement

- An empty parent id places a node at the root, shown as ` + "`/`" + `.
- Only directories can hold other nodes.
- The reserved parent id ` + "`trash`" + ` holds trashed nodes; its path is ` + "`Trash`" + `.
- Directory paths are slash-separated names from the root, e.g.
  ` + "`/projects/2025/q1`" + `. Use ` + "`create_directory_path`" + ` (or the
  ` + "`directory_path`" + ` argument of ` + "`create_text_note`" + `) to file content; existing
  directories are reused, so repeating a path never duplicates it.
- Directory names must not be blank and must not contain ` + "`/`" + `.

## Tags

- Tags are named labels shared across the library.
- Names are matched ignoring accents and case: ` + "`Café`" + ` and ` + "`cafe`" + ` are the
  same tag. Surrounding whitespace is significant. Use ` + "`find_tag`" + ` before
  inventing a new spelling.

## Text notes

` + "```" + `markdown
---
title: Weekly standup 2025-01-20     # OPTIONAL – overrides the derived title
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob. #meeting-notes #project-x
` + "```" + `

1. **Title** comes from the frontmatter ` + "`title`" + `, else the first ` + "`# heading`" + `,
   else the first line (shortened to 80 characters).
2. **Hashtags** (` + "`#word`" + `, letters, digits, ` + "`_`" + `, ` + "`-`" + ` and ` + "`/`" + `) are indexed for
   search alongside the node's tags.
3. **Encoding** is UTF-8. Any language may be used in note text.

## Images

- Add images with the ` + "`add_image`" + ` tool from an http(s) URL or a base64
  data URI. Supported formats: png, jpg, jpeg, gif, webp, svg.
- The image file is owned by its node: removing the node removes the file.
`
