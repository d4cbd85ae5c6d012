package promissory

// Version should be set by build flags: `git describe --tags`
var Version = "please set in makefile"
