// Package types holds application-wide constants.
package types

const (
	Application = "annotgen"
	Description = "Annotation Template Generator inserts design-template comments before class and method declarations"
	WebSite     = "https://github.com/origadmin/annotgen"
	UI          = `
                       __
  ____ _____  ____  __/ /_____ ____  ____
 / __ '/ __ \/ __ \/ __/ __ '/ _ \/ __ \
/ /_/ / / / / /_/ / /_/ /_/ /  __/ / / /
\__,_/_/ /_/\____/\__/\__, /\___/_/ /_/
                     /____/
`
)
