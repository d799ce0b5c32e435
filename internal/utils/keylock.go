package utils

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex набор мьютексов, распределённых по ключу. Разные ключи могут попасть
// в один шард, один ключ всегда попадает в один и тот же.
type KeyedMutex struct {
	shards []sync.Mutex
}

func NewKeyedMutex(shards int) *KeyedMutex {
	if shards <= 0 {
		shards = 64
	}
	return &KeyedMutex{shards: make([]sync.Mutex, shards)}
}

// Lock блокирует шард ключа и возвращает функцию разблокировки
func (k *KeyedMutex) Lock(key uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(key[:])
	m := &k.shards[h.Sum32()%uint32(len(k.shards))]
	m.Lock()
	return m.Unlock
}
