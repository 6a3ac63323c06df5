package mcpserver

// DisplayRules describes how anchorlink writes display text, so that LLM
// consumers can predict and reproduce it.
const DisplayRules = `# anchorlink Display Text Rules

An anchor link points at a heading (or block) inside another note:

` + "```" + `markdown
[[Note#Heading]]             heading link
[[Note#Heading#Sub heading]] nested heading path
[[Note#^block-id]]           block reference
![[Note#Heading]]            embed (skipped while ignoreEmbedded is on)
` + "```" + `

When the closing ` + "`" + `]]` + "`" + ` of a link without display text is typed, anchorlink
inserts ` + "`" + `|display text` + "`" + ` right before it. A link that already has a ` + "`" + `|` + "`" + ` is never
rewritten automatically.

## Settings

- **includeNoteName**: ` + "`" + `headersOnly` + "`" + ` (default), ` + "`" + `noteNameFirst` + "`" + `, ` + "`" + `noteNameLast` + "`" + `.
- **whichHeadings**: ` + "`" + `allHeaders` + "`" + ` (default, joined with sep), ` + "`" + `lastHeader` + "`" + `, ` + "`" + `firstHeader` + "`" + `.
- **sep**: separator between parts, default a single space. It may not contain
  any of ` + "`" + `[ ] # ^ |` + "`" + `.
- **titleProperty**: frontmatter property used instead of the note name when
  set and present on the target note.
- **suggest**: offer the three candidate forms when the cursor sits after ` + "`" + `]]` + "`" + `.
- **ignoreEmbedded**: leave ` + "`" + `![[...]]` + "`" + ` embeds alone (default on).

## Examples (sep " > ", allHeaders)

| link | headersOnly | noteNameFirst | noteNameLast |
|---|---|---|---|
| ` + "`" + `[[Project#Tasks#Open]]` + "`" + ` | Tasks > Open | Project > Tasks > Open | Tasks > Open > Project |
| ` + "`" + `[[Log#^a1b2]]` + "`" + ` | a1b2 | Log > a1b2 | a1b2 > Log |
`
