package domain

import "strings"

type Provider struct {
	Identity   string `msgpack:"identity"`
	Profession string `msgpack:"profession"`
	Location   string `msgpack:"location"`
}

func (p Provider) Valid() bool {
	return strings.TrimSpace(p.Identity) != ""
}
