// sigil-cli is a command-line client for interacting with a sigild node.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sigilnet/sigil/config"
	"github.com/sigilnet/sigil/internal/keys"
	"github.com/sigilnet/sigil/internal/rpcclient"
	"github.com/sigilnet/sigil/pkg/crypto"
	"github.com/sigilnet/sigil/pkg/types"
	"golang.org/x/term"
)

// keystoreDir returns the keystore path matching sigild's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := "http://127.0.0.1:8560"
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	// Scan for --rpc, --datadir, and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if network == "testnet" {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir := keystoreDir(dataDir, network)
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "owner":
		cmdOwner(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "approved":
		cmdApproved(client, cmdArgs)
	case "uri":
		cmdURI(client, cmdArgs)
	case "events":
		cmdEvents(client, cmdArgs)
	case "mint":
		cmdMint(client, cmdArgs, ksDir)
	case "transfer":
		cmdTransfer(client, cmdArgs, ksDir, false)
	case "safe-transfer":
		cmdTransfer(client, cmdArgs, ksDir, true)
	case "burn":
		cmdBurn(client, cmdArgs, ksDir)
	case "approve":
		cmdApprove(client, cmdArgs, ksDir)
	case "approve-all":
		cmdApproveAll(client, cmdArgs, ksDir)
	case "bootstrap":
		cmdBootstrap(client, cmdArgs)
	case "set-admin":
		cmdSetAdmin(client, cmdArgs, ksDir)
	case "receiver":
		cmdReceiver(client, cmdArgs)
	case "identity":
		cmdIdentity(cmdArgs, ksDir)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sigil-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8560)
  --datadir <path>    Data directory (default: ~/.sigil)
  --network <net>     mainnet (default) or testnet

Commands:
  status                          Show registry status
  owner <token>                   Show the owner of a token
  balance <address>               Show how many tokens an account holds
  approved <token>                Show the delegate approved for a token
  uri <token>                     Show a token's metadata URI
  events [--from N --limit N]     List committed registry events
  mint --to <addr> [--data <hex>] [signing]
                                  Mint the next token
  transfer --from <addr> --to <addr> --token <id> [signing]
                                  Transfer a token
  safe-transfer --from <addr> --to <addr> --token <id> [--data <hex>] [signing]
                                  Transfer with receiver acknowledgment
  burn --token <id> [signing]     Destroy a token
  approve --delegate <addr> --token <id> [signing]
                                  Approve a delegate (empty addr clears)
  approve-all --operator <addr> --approved <bool> [signing]
                                  Grant or revoke an operator
  bootstrap --admin <addr>        Claim the one-time admin slot
  set-admin --admin <addr> [signing]
                                  Hand the admin role to another account
  receiver <register|unregister|list> [flags]
                                  Manage active receiver endpoints
  identity <create|import|list|accounts|new-account|delete> [flags]
                                  Manage local signing identities

Signing flags (any mutation):
  --identity <name>   Sign with a keystore identity (prompts for password)
  --account <index>   Account index within the identity (default 0)
  --caller <addr>     Act as this address without signing
`)
}

// --- signer resolution ---

// resolveSigner determines the caller address and, when an identity is
// named, attaches its key to the client.
func resolveSigner(client *rpcclient.Client, ksDir, identity string, account uint, caller string) string {
	if identity == "" {
		if caller == "" {
			fatal("either --identity or --caller is required")
		}
		return caller
	}

	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Unlock(identity, password)
	if err != nil {
		fatal("%v", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	master, err := keys.MasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	acct, err := master.Account(uint32(account))
	if err != nil {
		fatal("derive account %d: %v", account, err)
	}
	signer, err := acct.Signer()
	if err != nil {
		fatal("derive signing key: %v", err)
	}

	client.SetKey(signer)
	addr := crypto.AddressFromPubKey(signer.PublicKey()).String()
	if caller != "" && caller != addr {
		fatal("--caller %s does not match identity address %s", caller, addr)
	}
	return addr
}

// signingFlags registers the shared mutation flags on a flag set.
func signingFlags(fs *flag.FlagSet) (identity *string, account *uint, caller *string) {
	identity = fs.String("identity", "", "Keystore identity to sign with")
	account = fs.Uint("account", 0, "Account index within the identity")
	caller = fs.String("caller", "", "Caller address (unsigned)")
	return
}

// --- queries ---

func cmdStatus(client *rpcclient.Client) {
	info, err := client.RegistryInfo()
	if err != nil {
		fatal("registry_getInfo: %v", err)
	}

	fmt.Printf("Registry: %s (%s)\n", info.Name, info.Symbol)
	fmt.Printf("Supply:   %d\n", info.TotalSupply)
	fmt.Printf("Last ID:  %s\n", info.LastID)
	fmt.Printf("Events:   %d\n", info.Events)

	admin, err := client.Admin()
	if err != nil {
		fatal("registry_getAdmin: %v", err)
	}
	if admin.Initialized {
		fmt.Printf("Admin:    %s\n", admin.Admin)
	} else {
		fmt.Println("Admin:    (not bootstrapped)")
	}
}

func cmdOwner(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: sigil-cli owner <token>")
	}
	owner, err := client.OwnerOf(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(owner)
}

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: sigil-cli balance <address>")
	}
	bal, err := client.BalanceOf(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(bal)
}

func cmdApproved(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: sigil-cli approved <token>")
	}
	delegate, err := client.GetApproved(args[0])
	if err != nil {
		fatal("%v", err)
	}
	if delegate == "" {
		fmt.Println("(none)")
		return
	}
	fmt.Println(delegate)
}

func cmdURI(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: sigil-cli uri <token>")
	}
	uri, err := client.TokenURI(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(uri)
}

func cmdEvents(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	from := fs.Uint64("from", 0, "First sequence number")
	limit := fs.Uint64("limit", 0, "Maximum events (0 = all)")
	fs.Parse(args)

	evs, err := client.Events(*from, *limit)
	if err != nil {
		fatal("%v", err)
	}
	for _, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			fatal("marshal event: %v", err)
		}
		fmt.Println(string(data))
	}
}

// --- mutations ---

func cmdMint(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	dataHex := fs.String("data", "", "Payload forwarded to the receiver (hex)")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *to == "" {
		fatal("Usage: sigil-cli mint --to <addr> [--data <hex>] [signing flags]")
	}
	from := resolveSigner(client, ksDir, *identity, *account, *caller)

	minted, err := client.Mint(from, *to, parseHex(*dataHex))
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Minted token %s to %s\n", minted.Token, minted.Owner)
}

func cmdTransfer(client *rpcclient.Client, args []string, ksDir string, safe bool) {
	name := "transfer"
	if safe {
		name = "safe-transfer"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	from := fs.String("from", "", "Current owner")
	to := fs.String("to", "", "New owner")
	token := fs.String("token", "", "Token ID")
	dataHex := fs.String("data", "", "Payload forwarded to the receiver (hex)")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *from == "" || *to == "" || *token == "" {
		fatal("Usage: sigil-cli %s --from <addr> --to <addr> --token <id> [signing flags]", name)
	}
	actor := resolveSigner(client, ksDir, *identity, *account, *caller)

	var err error
	if safe {
		err = client.SafeTransfer(actor, *from, *to, *token, parseHex(*dataHex))
	} else {
		err = client.Transfer(actor, *from, *to, *token)
	}
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Token %s transferred to %s\n", *token, *to)
}

func cmdBurn(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	token := fs.String("token", "", "Token ID")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *token == "" {
		fatal("Usage: sigil-cli burn --token <id> [signing flags]")
	}
	actor := resolveSigner(client, ksDir, *identity, *account, *caller)

	if err := client.Burn(actor, *token); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Token %s burned\n", *token)
}

func cmdApprove(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	delegate := fs.String("delegate", "", "Delegate address (empty clears)")
	token := fs.String("token", "", "Token ID")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *token == "" {
		fatal("Usage: sigil-cli approve --delegate <addr> --token <id> [signing flags]")
	}
	actor := resolveSigner(client, ksDir, *identity, *account, *caller)

	if err := client.Approve(actor, *delegate, *token); err != nil {
		fatal("%v", err)
	}
	if *delegate == "" {
		fmt.Printf("Approval for token %s cleared\n", *token)
	} else {
		fmt.Printf("%s approved for token %s\n", *delegate, *token)
	}
}

func cmdApproveAll(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("approve-all", flag.ExitOnError)
	operator := fs.String("operator", "", "Operator address")
	approved := fs.String("approved", "", "true or false")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *operator == "" || *approved == "" {
		fatal("Usage: sigil-cli approve-all --operator <addr> --approved <bool> [signing flags]")
	}
	value, err := strconv.ParseBool(*approved)
	if err != nil {
		fatal("--approved must be true or false")
	}
	actor := resolveSigner(client, ksDir, *identity, *account, *caller)

	if err := client.SetApprovalForAll(actor, *operator, value); err != nil {
		fatal("%v", err)
	}
	if value {
		fmt.Printf("%s granted operator over all tokens of %s\n", *operator, actor)
	} else {
		fmt.Printf("%s revoked as operator for %s\n", *operator, actor)
	}
}

func cmdBootstrap(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	admin := fs.String("admin", "", "Admin address")
	fs.Parse(args)

	if *admin == "" {
		fatal("Usage: sigil-cli bootstrap --admin <addr>")
	}
	if err := client.Bootstrap(*admin); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Registry bootstrapped with admin %s\n", *admin)
}

func cmdSetAdmin(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("set-admin", flag.ExitOnError)
	admin := fs.String("admin", "", "New admin address")
	identity, account, caller := signingFlags(fs)
	fs.Parse(args)

	if *admin == "" {
		fatal("Usage: sigil-cli set-admin --admin <addr> [signing flags]")
	}
	actor := resolveSigner(client, ksDir, *identity, *account, *caller)

	if err := client.SetAdmin(actor, *admin); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Admin handed to %s\n", *admin)
}

// --- receiver ---

func cmdReceiver(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sigil-cli receiver <register|unregister|list> [flags]")
	}

	switch args[0] {
	case "register":
		fs := flag.NewFlagSet("receiver register", flag.ExitOnError)
		address := fs.String("address", "", "Receiver account")
		endpoint := fs.String("endpoint", "", "HTTP acknowledgment endpoint")
		fs.Parse(args[1:])
		if *address == "" || *endpoint == "" {
			fatal("Usage: sigil-cli receiver register --address <addr> --endpoint <url>")
		}
		if err := client.RegisterReceiver(*address, *endpoint); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s registered as active receiver at %s\n", *address, *endpoint)

	case "unregister":
		fs := flag.NewFlagSet("receiver unregister", flag.ExitOnError)
		address := fs.String("address", "", "Receiver account")
		fs.Parse(args[1:])
		if *address == "" {
			fatal("Usage: sigil-cli receiver unregister --address <addr>")
		}
		if err := client.UnregisterReceiver(*address); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s reverted to passive holder\n", *address)

	case "list":
		regs, err := client.Receivers()
		if err != nil {
			fatal("%v", err)
		}
		if len(regs) == 0 {
			fmt.Println("No active receivers.")
			return
		}
		for _, r := range regs {
			fmt.Printf("%s  %s\n", r.Address, r.Endpoint)
		}

	default:
		fatal("Unknown receiver command: %s", args[0])
	}
}

// --- identity ---

func cmdIdentity(args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: sigil-cli identity <create|import|list|accounts|new-account|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdIdentityCreate(args[1:], ksDir)
	case "import":
		cmdIdentityImport(args[1:], ksDir)
	case "list":
		cmdIdentityList(ksDir)
	case "accounts":
		cmdIdentityAccounts(args[1:], ksDir)
	case "new-account":
		cmdIdentityNewAccount(args[1:], ksDir)
	case "delete":
		cmdIdentityDelete(args[1:], ksDir)
	default:
		fatal("Unknown identity command: %s", args[0])
	}
}

func cmdIdentityCreate(args []string, ksDir string) {
	fs := flag.NewFlagSet("identity create", flag.ExitOnError)
	name := fs.String("name", "", "Identity name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: sigil-cli identity create --name <name>")
	}

	mnemonic, err := keys.NewMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	seed := seedFromMnemonic(mnemonic)
	defer zeroBytes(seed)

	createIdentity(ksDir, *name, seed)
}

func cmdIdentityImport(args []string, ksDir string) {
	fs := flag.NewFlagSet("identity import", flag.ExitOnError)
	name := fs.String("name", "", "Identity name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: sigil-cli identity import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !keys.ValidMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	seed := seedFromMnemonic(*mnemonic)
	defer zeroBytes(seed)

	createIdentity(ksDir, *name, seed)
}

func seedFromMnemonic(mnemonic string) []byte {
	seed, err := keys.Seed(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	return seed
}

func createIdentity(ksDir, name string, seed []byte) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("create keystore: %v", err)
	}
	if err := ks.Create(name, seed, password, keys.DefaultKDFParams()); err != nil {
		fatal("create identity: %v", err)
	}

	acct, err := ks.NextAccount(name, "Default", seed)
	if err != nil {
		fatal("derive account: %v", err)
	}

	fmt.Printf("\nIdentity created: %s\n", name)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdIdentityList(ksDir string) {
	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list identities: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No identities found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdIdentityAccounts(args []string, ksDir string) {
	fs := flag.NewFlagSet("identity accounts", flag.ExitOnError)
	name := fs.String("name", "", "Identity name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: sigil-cli identity accounts --name <name>")
	}
	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	accts, err := ks.Accounts(*name)
	if err != nil {
		fatal("%v", err)
	}
	for _, a := range accts {
		fmt.Printf("%d  %-16s %s\n", a.Index, a.Name, a.Address)
	}
}

func cmdIdentityNewAccount(args []string, ksDir string) {
	fs := flag.NewFlagSet("identity new-account", flag.ExitOnError)
	name := fs.String("name", "", "Identity name")
	label := fs.String("label", "", "Account label")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: sigil-cli identity new-account --name <name> [--label <label>]")
	}

	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Unlock(*name, password)
	if err != nil {
		fatal("%v", err)
	}
	defer zeroBytes(seed)

	acct, err := ks.NextAccount(*name, *label, seed)
	if err != nil {
		fatal("derive account: %v", err)
	}
	fmt.Printf("Account %d: %s\n", acct.Index, acct.Address)
}

func cmdIdentityDelete(args []string, ksDir string) {
	fs := flag.NewFlagSet("identity delete", flag.ExitOnError)
	name := fs.String("name", "", "Identity name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: sigil-cli identity delete --name <name>")
	}
	ks, err := keys.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Identity %s deleted\n", *name)
}

// --- helpers ---

func parseHex(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		fatal("invalid hex data: %v", err)
	}
	return b
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
