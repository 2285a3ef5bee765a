package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	NA = "N/A"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

func idNode() *snowflake.Node {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
	})
	return node
}

// UUIDint64 a time ordered unique int64 id
func UUIDint64() int64 {
	return idNode().Generate().Int64()
}

// IfEmptyStr returns defval when src is blank
func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}
