package batchexchange

// Subset of the BatchExchange (Gnosis Protocol v1) ABI used by the auction runner and the deposit tool.
const exchangeABIJSON = `[
  {"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getEncodedUserOrders","outputs":[{"internalType":"bytes","name":"elements","type":"bytes"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"uint16","name":"id","type":"uint16"}],"name":"tokenIdToAddressMap","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"getCurrentBatchId","outputs":[{"internalType":"uint32","name":"","type":"uint32"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"user","type":"address"},
    {"internalType":"address","name":"token","type":"address"}
  ],"name":"getBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"token","type":"address"},
    {"internalType":"uint256","name":"amount","type":"uint256"}
  ],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"uint16[]","name":"buyTokens","type":"uint16[]"},
    {"internalType":"uint16[]","name":"sellTokens","type":"uint16[]"},
    {"internalType":"uint32[]","name":"validFroms","type":"uint32[]"},
    {"internalType":"uint32[]","name":"validUntils","type":"uint32[]"},
    {"internalType":"uint128[]","name":"buyAmounts","type":"uint128[]"},
    {"internalType":"uint128[]","name":"sellAmounts","type":"uint128[]"}
  ],"name":"placeValidFromOrders","outputs":[{"internalType":"uint16[]","name":"orderIds","type":"uint16[]"}],"stateMutability":"nonpayable","type":"function"}
]`

const erc20ABIJSON = `[
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"spender","type":"address"},
    {"internalType":"uint256","name":"amount","type":"uint256"}
  ],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// Some early tokens (MKR, SAI) return symbol as bytes32.
const erc20Bytes32SymbolABIJSON = `[
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`
