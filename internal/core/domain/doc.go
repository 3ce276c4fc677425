// Package domain contains the core types of the catalog: file records,
// users, feedback, search sessions and the name normalisation rules they
// all share. It has no dependencies on storage or transport.
package domain
