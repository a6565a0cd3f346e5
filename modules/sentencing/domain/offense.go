package domain

type Offense struct {
	Name             string
	StateCode        StateCode
	IsSexOffense     *bool
	IsViolentOffense *bool
}
