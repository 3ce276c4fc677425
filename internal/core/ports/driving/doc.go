// Package driving defines the interfaces through which hosts (the bot
// consumer, the CLI) invoke the core services.
package driving
