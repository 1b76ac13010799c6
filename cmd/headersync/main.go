// Command headersync feeds a stream of hex-encoded block headers, one per
// line, into a chain.Chain backed by either leveldbstore or pgstore.
// Grounded on blkchain/cmd/import/import.go's flag set and ctrl-c handling,
// repurposed here to drive the header-only chain engine instead of a full
// block importer.
package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/chain"
	"github.com/blksv/chaincore/leveldbstore"
	"github.com/blksv/chaincore/pgstore"
	"github.com/blksv/chaincore/rlimit"
	"github.com/blksv/chaincore/rules"
	"github.com/blksv/chaincore/store"
)

func main() {
	storeKind := flag.String("store", "leveldb", "leveldb or postgres")
	levelDBPath := flag.String("leveldb", "./headers.db", "/path/to/leveldb header store")
	connStr := flag.String("connstr", "host=/var/run/postgresql dbname=headers sslmode=disable", "postgres connection string")
	in := flag.String("in", "", "file of newline-delimited hex headers (default stdin)")
	testNet := flag.Bool("testnet", false, "use testnet3 parameters instead of mainnet")
	flag.Parse()

	params := &chaincfg.MainNetParams
	if *testNet {
		params = &chaincfg.TestNet3Params
	}

	if *storeKind == "leveldb" {
		if err := rlimit.SetRLimit(1024); err != nil { // leveldb opens many files
			log.Printf("setting rlimit: %v", err)
		}
	}

	genesis := genesisBlock(params)

	s, closeStore, err := openStore(*storeKind, *levelDBPath, *connStr, genesis)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer closeStore()

	c, err := chain.New(s, params.PowLimit, rules.NewNetworkChecker(params))
	if err != nil {
		log.Fatalf("chain.New: %v", err)
	}

	r := os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			log.Fatalf("opening %s: %v", *in, err)
		}
		defer f.Close()
		r = f
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	accepted, orphaned, err := feed(c, r, interrupt)
	log.Printf("accepted %d headers, %d orphaned, head now at height %d", accepted, orphaned, c.BestHeight())
	if err != nil {
		log.Fatalf("feed: %v", err)
	}
}

// genesisBlock builds the StoredBlock for params' genesis header, the
// seed every fresh store needs.
func genesisBlock(params *chaincfg.Params) *chaincore.StoredBlock {
	gh := &params.GenesisBlock.Header
	header := &chaincore.BlockHeader{
		Version:        uint32(gh.Version),
		Time:           uint32(gh.Timestamp.Unix()),
		Bits:           gh.Bits,
		Nonce:          gh.Nonce,
		HashMerkleRoot: fromChainHash(gh.MerkleRoot),
	}
	return chaincore.NewStoredBlock(header, nil, 1)
}

func fromChainHash(h [32]byte) chaincore.Hash {
	var out chaincore.Hash
	for i := 0; i < 32; i++ {
		out[i] = h[31-i]
	}
	return out
}

func openStore(kind, levelDBPath, connStr string, genesis *chaincore.StoredBlock) (store.BlockStore, func(), error) {
	switch kind {
	case "leveldb":
		s, err := leveldbstore.Open(levelDBPath, genesis)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := pgstore.Open(connStr, genesis)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown -store %q", kind)
	}
}

// feed decodes one header per line from r and adds each to c in order,
// stopping early if interrupt fires.
func feed(c *chain.Chain, r io.Reader, interrupt <-chan os.Signal) (accepted, orphaned int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 256)

	for scanner.Scan() {
		select {
		case <-interrupt:
			log.Printf("interrupt, stopping after %d headers", accepted+orphaned)
			return accepted, orphaned, nil
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		header, err := decodeHeader(line)
		if err != nil {
			return accepted, orphaned, fmt.Errorf("decoding header %q: %w", line, err)
		}

		parent := c.ChainHead()
		candidate := chaincore.NewStoredBlock(header, parent, 0)
		result, err := c.Add(candidate)
		if err != nil {
			return accepted, orphaned, fmt.Errorf("adding header %s: %w", candidate.Hash(), err)
		}
		if result == chain.Orphaned {
			orphaned++
		} else {
			accepted++
		}
	}
	return accepted, orphaned, scanner.Err()
}

func decodeHeader(line string) (*chaincore.BlockHeader, error) {
	raw, err := hex.DecodeString(line)
	if err != nil {
		return nil, err
	}
	var header chaincore.BlockHeader
	if err := chaincore.BinRead(&header, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return &header, nil
}
