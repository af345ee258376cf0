// Package mining implements the per-identifier pipelines of forge-miner on
// top of the collection engine.
//
// A Contributions pipeline turns one GitHub login into one table row whose
// cells are patched as the profile, contribution totals and four repository
// categories are fetched. A Commits pipeline turns one repository URL into
// one terminal row per commit of the walked branches. A UserCommits pipeline
// turns one login into a row per commit the user authored across their
// repositories, with line changes per file language.
//
// All pipelines implement batch.Pipeline and read their data through small
// source interfaces that *github.Client satisfies.
package mining
