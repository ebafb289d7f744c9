// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle: obtain a unit from a
// model or a saved bundle, then print, describe, run and save it as asked.
// It is decoupled from any specific entrypoint like a CLI.
package app
