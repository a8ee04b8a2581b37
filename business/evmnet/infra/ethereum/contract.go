package ethereum

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
)

// errUnknownEvent is returned by ParseLog when a log's first topic
// does not match any event in the contract's ABI.
var errUnknownEvent = errors.New("ethereum: log does not match any known event")

// boundContractHandle adapts go-ethereum's bind.BoundContract to
// domain.ContractHandle: the same method-by-name dispatch the spec's
// generic contract registry calls for, without generated bindings.
type boundContractHandle struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

// NewContractHandle builds a domain.ContractHandle bound to address,
// backed by backend, using abiJSON as its interface. It can be used
// directly as a domain.Loader by partial application.
func NewContractHandle(address common.Address, abiJSON string, backend bind.ContractBackend) (domain.ContractHandle, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}

	bound := bind.NewBoundContract(address, parsed, backend, backend, backend)

	return &boundContractHandle{address: address, abi: parsed, bound: bound}, nil
}

func (h *boundContractHandle) Address() common.Address {
	return h.address
}

func (h *boundContractHandle) ParseLog(log types.Log) (domain.ParsedLog, error) {
	for _, event := range h.abi.Events {
		if len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		args := make(map[string]any)
		if err := h.abi.UnpackIntoMap(args, event.Name, log.Data); err != nil {
			return domain.ParsedLog{}, err
		}

		return domain.ParsedLog{Name: event.Name, Args: args}, nil
	}

	return domain.ParsedLog{}, errUnknownEvent
}

func (h *boundContractHandle) Call(ctx context.Context, out *[]any, methodName string, args ...any) error {
	opts := &bind.CallOpts{Context: ctx}
	return h.bound.Call(opts, out, methodName, args...)
}

func (h *boundContractHandle) Transact(ctx context.Context, opts *bind.TransactOpts, methodName string, args ...any) (*types.Transaction, error) {
	txOpts := *opts
	txOpts.Context = ctx
	return h.bound.Transact(&txOpts, methodName, args...)
}

// LoaderForABI returns a domain.Loader that builds a ContractHandle
// bound to whatever address and backend the connection manager passes
// it, always against the same ABI. This is the shape the connection
// manager's registry actually stores (address -> loader), since a
// single ABI is typically reused across many deployed instances of the
// same contract.
func LoaderForABI(abiJSON string) domain.Loader {
	return func(ctx context.Context, address common.Address, backend bind.ContractBackend, _ *bind.TransactOpts) (domain.ContractHandle, error) {
		return NewContractHandle(address, abiJSON, backend)
	}
}
