package domain

var Tables = []interface{}{
	&PublishLog{},
	&KVEntry{},
}
