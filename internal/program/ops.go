// Package program implements the flat bytecode instruction stream a
// compiled parselet body runs on, plus the matcher table consulted by
// OpMatch. Instructions are plain structs rather than a packed integer
// encoding: the compiler lowers straight to an in-memory Program the VM
// interprets, with no source-emitting codegen step that would need
// literal-friendly instruction words.
package program

// Op is an opcode executed by internal/vm.Thread.
type Op byte

const (
	OpNop Op = iota

	// --- primitive matching ---
	OpMatch    // A = matcher index; consumes on success, pushes a range capture
	OpCallRule // A = parselet index; performs a full parselet call (consumption)

	// --- position (reader) stack ---
	OpPushPos          // save current reader offset
	OpPopPos           // discard saved offset
	OpRestorePos       // pop and unconditionally restore reader to it
	OpRestorePosIfFail // pop; restore reader to it only if the last op failed

	// --- control flow over the ok/fail register ---
	OpJump        // A = target
	OpJumpIfFail  // A = target; jump if !ok, ok is left unchanged
	OpJumpIfOk    // A = target; jump if ok
	OpJumpIfMoved // A = target; pop saved offset, jump if the reader advanced past it (quantifier continuation)
	OpInvert      // ok = !ok (used by `not`)
	OpForceOk     // ok = true unconditionally (used by `*`/`?`, which never fail)

	// --- capture stack (sequence/quantifier/alias results) ---
	OpCapMark      // push current capture-stack length onto the mark stack
	OpCapCollect   // pop mark, collect captures since it into one Value-capture (sequence exit)
	OpCapDiscard   // pop mark, drop every capture pushed since it (sequence/choice failure)
	OpCapAlias     // A = string index; set the alias of the top-of-capture-stack entry
	OpCapSeverity  // A = severity; override the top-of-capture-stack entry's severity
	OpQuantStart   // push an empty "list so far" accumulator (for +/*)
	OpQuantAppend  // pop the capture mark; if the iteration produced a capture above it, append its value to the top accumulator
	OpQuantFinish  // pop the accumulator, push it as a List-valued capture spanning the consumed range
	OpPushValueCap // pop a value (from the expression stack) and push it as a value-only capture (`push expr`)

	// --- expression stack (script expressions, disjoint from captures) ---
	OpConst      // A = constant pool index; push value
	OpLoadLocal  // A = local slot; push value
	OpStoreLocal // A = local slot; pop value, store (plain `=`)
	OpDup        // duplicate top of expression stack (for "hold" assignment forms)
	OpPop        // discard top of expression stack
	OpTest       // pop a value, ok = value.Truthy() (bridges if/for/loop conditions into the ok register)
	OpBinOp      // A = BinOp; pop two, push result
	OpUnOp       // A = UnOp; pop one, push result
	OpIndex      // pop index, pop collection, push element
	OpAttr       // A = string index; pop receiver, push attribute
	OpCallNative // A = name index, B = argc; pop argc values, push result
	OpCapRef     // A = capture index (0 = $0 / whole match); push that capture's value
	OpMakeList   // A = count; pop count values, push a List
	OpMakeDict   // no-op seed; dict entries assembled by repeated OpDictSet
	OpDictSet    // A = key-string index; pop value, set on dict currently on top-1
	OpAST        // A = emit-name index; B=1 pops an explicit value, B=0 uses the collected captures; push the ast() node dict

	// --- parselet call argument assembly ---
	OpArgsBegin   // start a fresh named-argument set for the next OpCallRule
	OpArgName     // A = name index; pop value, bind as named arg
	OpArgPos      // pop value, bind as next positional arg
	OpGenericArg  // pop value, append as next call-site generic argument

	// --- statements / control effects ---
	OpAccept   // pop expression value (or use collected result if B=0), terminate frame: Accept
	OpReject   // terminate frame: Reject
	OpRepeat   // restart the current parselet's main body
	OpExit     // terminate the whole program
	OpRaise    // promote pending reject into a ParseError (used by `expect`; `error()` raises through OpCallNative)

	// --- loop frames (for/loop) ---
	OpLoopBegin // A = end target; push a loop frame
	OpLoopEnd   // pop the loop frame
	OpBreak     // A = jump target (loop end); pop loop frame, optionally carry a value
	OpContinue  // A = jump target (loop step)

	OpMax
)

// BinOp enumerates binary operators for OpBinOp.
type BinOp byte

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinFloorDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
)

// UnOp enumerates unary operators for OpUnOp.
type UnOp byte

const (
	UnNeg UnOp = iota
	UnNot
)

// Instr is one decoded instruction: an opcode plus up to two integer
// arguments, which index into the owning Program's pools.
type Instr struct {
	Op   Op
	A, B int32
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(?)"
}

var opNames = []string{
	OpNop: "nop", OpMatch: "match", OpCallRule: "callRule",
	OpPushPos: "pushPos", OpPopPos: "popPos", OpRestorePos: "restorePos",
	OpRestorePosIfFail: "restorePosIfFail",
	OpJump:             "jump", OpJumpIfFail: "jumpIfFail", OpJumpIfOk: "jumpIfOk",
	OpJumpIfMoved: "jumpIfMoved",
	OpInvert:      "invert", OpForceOk: "forceOk",
	OpCapMark: "capMark", OpCapCollect: "capCollect", OpCapDiscard: "capDiscard",
	OpCapAlias: "capAlias", OpCapSeverity: "capSeverity",
	OpQuantStart: "quantStart", OpQuantAppend: "quantAppend", OpQuantFinish: "quantFinish",
	OpPushValueCap: "pushValueCap",
	OpConst:        "const", OpLoadLocal: "loadLocal", OpStoreLocal: "storeLocal",
	OpDup: "dup", OpPop: "pop", OpTest: "test", OpBinOp: "binOp", OpUnOp: "unOp",
	OpIndex: "index", OpAttr: "attr", OpCallNative: "callNative", OpCapRef: "capRef",
	OpMakeList: "makeList", OpMakeDict: "makeDict", OpDictSet: "dictSet", OpAST: "ast",
	OpArgsBegin: "argsBegin", OpArgName: "argName", OpArgPos: "argPos", OpGenericArg: "genericArg",
	OpAccept: "accept", OpReject: "reject", OpRepeat: "repeat", OpExit: "exit", OpRaise: "raise",
	OpLoopBegin: "loopBegin", OpLoopEnd: "loopEnd", OpBreak: "break", OpContinue: "continue",
}
