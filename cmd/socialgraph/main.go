// Command socialgraph ranks the accounts of a Twitter follower graph by
// degree, betweenness, eigenvector and bridging centrality, detects
// communities, and serves the results.
package main

func main() {
	Execute()
}
