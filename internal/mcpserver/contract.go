package mcpserver

// ProjectFormatGuide describes how folio lays out projects on disk, for LLM
// consumers creating projects or attaching notes.
const ProjectFormatGuide = `# folio Project Layout Guide

A folio project is a plain directory with a descriptor file at its root.

## Descriptor

` + "`" + `.project-descriptor.json` + "`" + ` holds:

` + "```" + `json
{
  "formatVersion": "1",
  "id": "0b6c1c9e-3a1f-4a53-9d53-5f1f5b0d2a77",
  "name": "Sleep study",
  "path": "/home/me/projects/Sleep study",
  "lastAccessed": "2026-10-19T08:30:00Z",
  "favorite": false,
  "template": { "id": "basic", "version": "1" }
}
` + "```" + `

Never edit or upload this file through the tools; use create_project and
open_project instead.

## Creating projects

1. **type "new"** creates ` + "`" + `<directory>/<name>` + "`" + `. The folder name is the
   display name with ` + "`" + `\ / : * ? " < > |` + "`" + ` removed, leading and trailing spaces
   and periods trimmed, and cut to 255 characters.
2. **type "existing"** adopts ` + "`" + `<directory>` + "`" + ` itself. A directory that
   already has a descriptor keeps it; nothing is overwritten.
3. **Templates** are optional. Pass both ` + "`" + `template_id` + "`" + ` and
   ` + "`" + `template_version` + "`" + ` exactly as returned by list_templates.

## Notes

- Notes attach to any file or folder of the project, including the root.
- Address assets by path relative to the project root (` + "`" + `data/raw/run1.csv` + "`" + `)
  or by the absolute ` + "`" + `uri` + "`" + ` shown in get_assets.
- Notes live in folio's index, not in the project folder. They follow the
  asset by path: renaming or deleting a file drops its notes.

## Assets

- Upload files with ` + "`" + `upload_asset` + "`" + ` from an http(s) URL or a base64 data URI.
- Housekeeping files (` + "`" + `.DS_Store` + "`" + `, ` + "`" + `Thumbs.db` + "`" + `, ` + "`" + `desktop.ini` + "`" + `) are
  ignored everywhere.
`
