package campaign

type statusTransition struct {
	from Status
	to   Status
}

// transitionTable enumerates every automatic edge of the lifecycle graph.
// awaiting_design has no automatic exit: the hand-off after creative delivery
// is an operator action, so the design syncer never moves a campaign itself.
var transitionTable = []statusTransition{
	{from: StatusPendingArticle, to: StatusAwaitingDesign},
	{from: StatusPendingArticle, to: StatusAwaitingTracking},
	{from: StatusPendingArticle, to: StatusFailed},
	{from: StatusAwaitingTracking, to: StatusArticleApproved},
	{from: StatusAwaitingTracking, to: StatusFailed},
	{from: StatusArticleApproved, to: StatusGeneratingAI},
	{from: StatusGeneratingAI, to: StatusGeneratingAI},
	{from: StatusGeneratingAI, to: StatusActive},
	{from: StatusGeneratingAI, to: StatusFailed},
}

var transitionSet = func() map[statusTransition]struct{} {
	set := make(map[statusTransition]struct{}, len(transitionTable))
	for _, edge := range transitionTable {
		set[edge] = struct{}{}
	}
	return set
}()

// CanTransition reports whether moving a campaign from one status to another
// is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	_, ok := transitionSet[statusTransition{from: from, to: to}]
	return ok
}
