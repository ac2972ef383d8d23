package cmd

// Serve exposes serve to the external test package.
var Serve = serve
