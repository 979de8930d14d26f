// Package services defines the error taxonomy shared by the external
// collaborator clients in its subpackages: content approval, ad platforms,
// AI generation, and design tasks.
package services
