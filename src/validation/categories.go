package validation

import "regexp"

var (
	gpuModelPattern  = regexp.MustCompile(`(rtx|gtx|rx)[-\s]*(\d{4})(\s*(ti|super|ultra|xtx|xt|x|g|oc|plus)\b)?`)
	steamDeckPattern = regexp.MustCompile(`steam\s*deck`)
)

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// -----------------------------------------------------------------------------

func builtinRuleSets() []*CategoryRuleSet {
	return []*CategoryRuleSet{
		videocardRules(),
		processorRules(),
		motherboardRules(),
		playstationRules(),
		nintendoSwitchRules(),
		steamDeckRules(),
		iphoneRules(),
	}
}

// -----------------------------------------------------------------------------

func videocardRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "videocards",
		AccessoryWords: []string{
			"кабел*", "cable", "наклейк*", "sticker", "держател*", "bracket", "backplate",
			"сумк*", "bag", "вентилятор*", "переходник*", "adapter", "радиатор*", "stand",
			"mount", "holder", "cover", "shell", "skin", "grip", "repair", "replacement",
			"accessory", "accessories", "аксессуар*", "комплект", "набор", "пленк*", "чехол", "чехл*",
		},
		Names:         []string{"видеокарта", "graphics card", "gpu"},
		Brands:        []string{"msi", "palit", "gigabyte", "zotac", "inno3d", "asus", "colorful", "galax", "maxsun", "aorus", "igame"},
		Series:        []string{"gaming", "eagle", "aorus", "ventus", "strix", "tuf", "phantom", "x", "xt", "xtx", "super", "ultra", "oc", "plus"},
		Features:      []string{"rtx", "gtx", "rx", "geforce", "radeon"},
		ModelPatterns: []*regexp.Regexp{gpuModelPattern},
		MinFeatures:   DefaultMinFeatures,
		Custom:        validateVideocard,
	}
}

func processorRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "processors",
		AccessoryWords: []string{
			"охлаждени*", "cooler", "кулер*", "fan", "вентилятор*", "радиатор*", "thermal", "паст*",
			"переходник*", "adapter", "держател*", "bracket", "backplate", "комплект", "набор",
			"kit", "аксессуар*", "accessory", "accessories", "чехол", "чехл*",
		},
		Names:    []string{"процессор", "cpu", "processor"},
		Brands:   []string{"amd", "intel", "ryzen", "xeon", "core", "pentium", "celeron"},
		Series:   []string{"ryzen", "core", "i3", "i5", "i7", "i9", "x3d", "hx"},
		Features: []string{"am5", "am4", "lga1700", "lga1200", "ddr5", "ddr4", "cache", "boost", "threads", "cores"},
		ModelPatterns: patterns(
			`\d{4,5}\s*x\s*3d`,
			`\d{4,5}\s*hx`,
			`\d{4,5}\s*x`,
			`i[3579]-?\d{4,5}[a-z]*`,
			`ryzen\s*[3579]\s*(\d{4}[a-z]*)`,
		),
		MinFeatures:  DefaultMinFeatures,
		StrictTokens: true,
		Custom:       validateProcessor,
	}
}

func motherboardRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "motherboards",
		AccessoryWords: []string{
			"кабел*", "cable", "наклейк*", "sticker", "держател*", "bracket", "заглушк*", "backplate",
			"сумк*", "bag", "вентилятор*", "переходник*", "adapter", "expansion card", "плата расширения",
			"радиатор*", "охлаждени*", "stand", "mount", "holder", "cover", "shell", "skin", "grip",
			"repair", "replacement", "accessory", "accessories", "аксессуар*", "комплект", "набор",
			"пленк*", "чехол", "чехл*",
		},
		Names: []string{"материнская плата", "motherboard"},
		Brands: []string{
			"asus", "msi", "gigabyte", "asrock", "biostar", "aorus", "evga", "maxsun", "colorful",
			"supermicro", "foxconn", "jetway", "ecs", "dfi", "zotac",
		},
		Series: []string{
			"gaming x", "aorus", "pro rs", "steel legend", "tomahawk", "phantom", "unify", "creator",
			"tuf", "prime", "eagle", "carbon", "lightning", "terminator", "pro", "ds3h", "d3hp", "force",
			"nitro", "riptide", "ayw", "battle-ax", "plus", "legend", "rs", "elite", "frozen", "wifi", "ice",
		},
		Features:     []string{"ddr5", "ddr4", "pcie", "wifi", "bluetooth", "usb3", "sata", "nvme", "m.2"},
		MinFeatures:  DefaultMinFeatures,
		StrictTokens: true,
		Chipsets: []string{
			"z990", "z890", "z790", "b860", "b850", "b760", "h810", "w880", "b760m", "b760m-k",
			"x950", "x870e", "x870", "a820", "b850mt2-e", "b850mt2-a", "b850mt2-d", "b850mt2-c",
			"b850mt2-b", "b850m-x", "b850m",
		},
		Platforms: []string{
			"am5", "am4", "lga1700", "lga1200", "lga1151", "lga1150", "lga1155", "lga2011", "lga2066",
			"lga1366", "lga775", "socket 1700", "socket 1200", "socket 1151", "socket 1150",
			"socket 1155", "socket 2011", "socket 2066", "socket 1366", "socket 775",
		},
		Custom: validateMotherboard,
	}
}

func playstationRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key:            "playstation",
		AccessoryWords: []string{"геймпад*", "джойстик*", "зарядн*", "кабел*", "чехол", "чехл*", "сумк*", "наклейк*"},
		AccessoryPatterns: patterns(
			`portal`,
			`remote[-\s]*player`,
			`игров(ое|ая|ой)?\s*устройств`,
			`портативн`,
			`устройств`,
		),
		Names:         []string{"playstation 5", "playstation 5 pro"},
		Brands:        []string{"sony", "playstation"},
		Series:        []string{"standard", "digital", "slim", "pro"},
		Features:      []string{"825gb", "1tb", "4k", "консоль"},
		ModelPatterns: patterns(`ps5\s*pro`, `ps5`, `playstation\s*5\s*pro`, `playstation\s*5`),
		MinFeatures:   DefaultMinFeatures,
		Custom:        validatePlaystation,
	}
}

func nintendoSwitchRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "nintendo_switch",
		AccessoryWords: []string{
			"чехол", "чехл*", "защитн*", "стекл*", "пленк*", "кабел*", "зарядн*", "сумк*",
			"наклейк*", "подставк*", "case", "cover",
		},
		Names:         []string{"nintendo switch 2", "nintendo switch oled"},
		Brands:        []string{"nintendo"},
		Series:        []string{"oled", "lite", "standard", "neon", "gray"},
		Features:      []string{"консоль", "32gb", "64gb", "игровая", "портативная"},
		ModelPatterns: patterns(`switch\s*oled`, `switch\s*lite`, `switch\s*2`, `nintendo\s*switch`),
		MinFeatures:   DefaultMinFeatures,
		Custom:        validateNintendoSwitch,
	}
}

func steamDeckRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "steam_deck",
		AccessoryPatterns: patterns(
			`чехол`, `кабель`, `док-станц`, `держател`, `наклейка`, `стекло`, `пленка`,
			`зарядк[аои]`, `адаптер`, `подставк[аои]`, `корпус`, `бокс`, `провод`,
			`сетев(ой|ая|ое)`, `карта памяти`, `геймпад`, `контроллер`, `руль`, `стикер`,
			`накладк[аои]`, `перчатк[аои]`, `перо`, `стилус`, `ремкомплект`, `ремонт`,
			`дисплей`, `экран`, `крышк[аои]`, `заглушк[аои]`, `органайзер`, `ремень`,
			`мешок`, `футляр`, `usb`, `hdmi`, `bluetooth`, `memory`, `card`,
			`reader`, `зарядное`, `устройство`, `батаре[яи]`, `аккумулятор`, `power ?bank`,
		),
		AccessoryExempt: isSteamDeckOLEDConsole,
		Names:           []string{"steam deck oled", "steam deck"},
		Brands:          []string{"valve", "steam"},
		Series:          []string{"oled", "lcd", "512gb", "1tb", "256gb"},
		Features:        []string{"консоль", "портативная", "игровая", "ssd", "1tb", "512gb", "256gb"},
		ModelPatterns:   []*regexp.Regexp{regexp.MustCompile(`steam\s*deck\s*oled`), steamDeckPattern},
		MinFeatures:     DefaultMinFeatures,
		Custom:          validateSteamDeck,
	}
}

func iphoneRules() *CategoryRuleSet {
	return &CategoryRuleSet{
		Key: "iphone",
		AccessoryPatterns: patterns(
			`чехол`, `стекло`, `пленка`, `кабель`, `зарядк[аои]`, `адаптер`, `батаре[яи]`,
			`аккумулятор`, `наклейка`, `подставк[аои]`, `корпус\s+для`, `бокс`, `провод`,
			`геймпад`, `контроллер`, `дисплей`, `экран`,
		),
		Names:    []string{"iphone", "айфон"},
		Brands:   []string{"apple"},
		Series:   []string{"16 pro", "16", "15 pro", "15", "14 pro", "14", "13 pro", "13", "12 pro", "12", "11 pro", "11", "se"},
		Features: []string{"pro", "max", "mini", "plus", "oled", "retina", "5g", "128gb", "256gb", "512gb", "1tb", "гб", "тб"},
		ModelPatterns: patterns(
			`iphone\s?1[1-6]\s?(pro|max|plus|mini)?`,
			`iphone\s?se`,
		),
		MinFeatures: DefaultMinFeatures,
		Custom:      validateIphone,
	}
}
