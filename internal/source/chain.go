package source

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

// identityRegistryABIJSON is the minimal ABI fragment for the two view
// functions we read. Declared inline to avoid depending on an external
// ABI file.
const identityRegistryABIJSON = `[
  {
    "inputs": [],
    "name": "getAgentCount",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "agentIndex", "type": "uint256"}],
    "name": "getAgent",
    "outputs": [
      {"name": "agentId",      "type": "string"},
      {"name": "agentDomain",  "type": "string"},
      {"name": "agentAddress", "type": "address"},
      {"name": "active",       "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// ChainSource reads an identity registry contract directly over RPC.
// The contract stores only the lean registration tuple, so mapped
// records carry no capability or skill terms; those come from the
// indexer-backed sources. Cursors are decimal registry indexes.
//
// The contract cannot filter, so the exact-equality flags are applied
// here after mapping. This keeps the source contract uniform (native
// filters are always fully applied by the source) at the cost of
// returning short pages.
type ChainSource struct {
	chainID   int64
	name      string
	rpcURL    string
	contract  common.Address
	parsedABI abi.ABI

	mu     sync.Mutex
	client *ethclient.Client
}

// NewChainSource creates a source reading the registry contract at
// contractAddr over the given RPC endpoint. The connection is dialed
// lazily on first fetch and reused.
func NewChainSource(chainID int64, name, rpcURL, contractAddr string) (*ChainSource, error) {
	parsedABI, err := abi.JSON(strings.NewReader(identityRegistryABIJSON))
	if err != nil {
		return nil, err
	}
	return &ChainSource{
		chainID:   chainID,
		name:      name,
		rpcURL:    rpcURL,
		contract:  common.HexToAddress(contractAddr),
		parsedABI: parsedABI,
	}, nil
}

func (s *ChainSource) ChainID() int64 { return s.chainID }
func (s *ChainSource) Name() string   { return s.name }

func (s *ChainSource) dial(ctx context.Context) (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain %d: dial %s: %w", s.chainID, s.rpcURL, err)
	}
	s.client = client
	return client, nil
}

func (s *ChainSource) FetchPage(ctx context.Context, native registry.NativeFilter, pageSize int, cursor string) (registry.Page, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return registry.Page{}, err
	}

	start := uint64(0)
	if cursor != "" {
		start, err = strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return registry.Page{}, ErrBadCursor
		}
	}

	count, err := s.agentCount(ctx, client)
	if err != nil {
		return registry.Page{}, err
	}

	end := start + uint64(pageSize)
	if end > count {
		end = count
	}

	page := registry.Page{}
	total := int(count)
	page.Total = &total
	for i := start; i < end; i++ {
		agent, err := s.agentAt(ctx, client, i)
		if err != nil {
			return registry.Page{}, err
		}
		if native.Active != nil && agent.Active != *native.Active {
			continue
		}
		// Registry tuples carry no payment metadata; a payment flag
		// constraint can only be satisfied by richer sources.
		if native.SupportsX402 != nil && *native.SupportsX402 {
			continue
		}
		page.Items = append(page.Items, agent)
	}
	if end < count {
		page.NextCursor = strconv.FormatUint(end, 10)
	}
	return page, nil
}

func (s *ChainSource) agentCount(ctx context.Context, client *ethclient.Client) (uint64, error) {
	data, err := s.parsedABI.Pack("getAgentCount")
	if err != nil {
		return 0, fmt.Errorf("chain %d: pack getAgentCount: %w", s.chainID, err)
	}
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("chain %d: getAgentCount: %w", s.chainID, err)
	}
	vals, err := s.parsedABI.Unpack("getAgentCount", res)
	if err != nil || len(vals) != 1 {
		return 0, fmt.Errorf("chain %d: unpack getAgentCount: %w", s.chainID, err)
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain %d: getAgentCount: unexpected return type", s.chainID)
	}
	return n.Uint64(), nil
}

func (s *ChainSource) agentAt(ctx context.Context, client *ethclient.Client, index uint64) (registry.Agent, error) {
	data, err := s.parsedABI.Pack("getAgent", new(big.Int).SetUint64(index))
	if err != nil {
		return registry.Agent{}, fmt.Errorf("chain %d: pack getAgent: %w", s.chainID, err)
	}
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return registry.Agent{}, fmt.Errorf("chain %d: getAgent(%d): %w", s.chainID, index, err)
	}
	vals, err := s.parsedABI.Unpack("getAgent", res)
	if err != nil || len(vals) != 4 {
		return registry.Agent{}, fmt.Errorf("chain %d: unpack getAgent(%d): %w", s.chainID, index, err)
	}

	agentID, _ := vals[0].(string)
	agentDomain, _ := vals[1].(string)
	addr, _ := vals[2].(common.Address)
	active, _ := vals[3].(bool)
	return s.mapAgent(agentID, agentDomain, addr, active), nil
}

// mapAgent converts one on-chain registration tuple to the normalized
// form. The domain doubles as the display name since the contract
// stores no separate one.
func (s *ChainSource) mapAgent(agentID, agentDomain string, addr common.Address, active bool) registry.Agent {
	id := agentID
	if id == "" {
		id = strings.ToLower(addr.Hex())
	}
	return registry.Agent{
		ID:      id,
		ChainID: s.chainID,
		Name:    agentDomain,
		Domain:  agentDomain,
		Active:  active,
	}
}
