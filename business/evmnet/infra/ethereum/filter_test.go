package ethereum

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLogFilterQuery_SetsRangeAndAddresses(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	q := logFilterQuery([]common.Address{addr}, nil, 100, 200)

	if q.FromBlock.Uint64() != 100 {
		t.Fatalf("expected FromBlock 100, got %s", q.FromBlock)
	}
	if q.ToBlock.Uint64() != 200 {
		t.Fatalf("expected ToBlock 200, got %s", q.ToBlock)
	}
	if len(q.Addresses) != 1 || q.Addresses[0] != addr {
		t.Fatalf("expected addresses [%s], got %v", addr, q.Addresses)
	}
	if q.Topics != nil {
		t.Fatalf("expected nil topics when none given, got %v", q.Topics)
	}
}

func TestLogFilterQuery_CarriesTopics(t *testing.T) {
	topic := common.HexToHash("0xabc")
	q := logFilterQuery(nil, [][]common.Hash{{topic}}, 1, 1)

	if len(q.Topics) != 1 || len(q.Topics[0]) != 1 || q.Topics[0][0] != topic {
		t.Fatalf("expected topics [[%s]], got %v", topic, q.Topics)
	}
}
