package lptable

// Table is the format's 12-bit non-linear to 16-bit linear PCM decode
// table for LP-mode (long-play) DAT audio. Index with a 12-bit code
// built from two packed nibbles (see audio.Write); the result is a
// signed 16-bit linear sample.
//
// This is not a derived value: the numeric sequence below is the
// format specification for LP-mode encoding. It must be used
// verbatim. The final 2048 entries encode the negative half of the
// range using two's-complement symmetry, with the transition from
// +32704 (index 2047) to -32768 (index 2048).
var Table = [4096]int16{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
	12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23,
	24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
	36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47,
	48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59,
	60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71,
	72, 73, 74, 75, 76, 77, 78, 79, 80, 81, 82, 83,
	84, 85, 86, 87, 88, 89, 90, 91, 92, 93, 94, 95,
	96, 97, 98, 99, 100, 101, 102, 103, 104, 105, 106, 107,
	108, 109, 110, 111, 112, 113, 114, 115, 116, 117, 118, 119,
	120, 121, 122, 123, 124, 125, 126, 127, 128, 129, 130, 131,
	132, 133, 134, 135, 136, 137, 138, 139, 140, 141, 142, 143,
	144, 145, 146, 147, 148, 149, 150, 151, 152, 153, 154, 155,
	156, 157, 158, 159, 160, 161, 162, 163, 164, 165, 166, 167,
	168, 169, 170, 171, 172, 173, 174, 175, 176, 177, 178, 179,
	180, 181, 182, 183, 184, 185, 186, 187, 188, 189, 190, 191,
	192, 193, 194, 195, 196, 197, 198, 199, 200, 201, 202, 203,
	204, 205, 206, 207, 208, 209, 210, 211, 212, 213, 214, 215,
	216, 217, 218, 219, 220, 221, 222, 223, 224, 225, 226, 227,
	228, 229, 230, 231, 232, 233, 234, 235, 236, 237, 238, 239,
	240, 241, 242, 243, 244, 245, 246, 247, 248, 249, 250, 251,
	252, 253, 254, 255, 256, 257, 258, 259, 260, 261, 262, 263,
	264, 265, 266, 267, 268, 269, 270, 271, 272, 273, 274, 275,
	276, 277, 278, 279, 280, 281, 282, 283, 284, 285, 286, 287,
	288, 289, 290, 291, 292, 293, 294, 295, 296, 297, 298, 299,
	300, 301, 302, 303, 304, 305, 306, 307, 308, 309, 310, 311,
	312, 313, 314, 315, 316, 317, 318, 319, 320, 321, 322, 323,
	324, 325, 326, 327, 328, 329, 330, 331, 332, 333, 334, 335,
	336, 337, 338, 339, 340, 341, 342, 343, 344, 345, 346, 347,
	348, 349, 350, 351, 352, 353, 354, 355, 356, 357, 358, 359,
	360, 361, 362, 363, 364, 365, 366, 367, 368, 369, 370, 371,
	372, 373, 374, 375, 376, 377, 378, 379, 380, 381, 382, 383,
	384, 385, 386, 387, 388, 389, 390, 391, 392, 393, 394, 395,
	396, 397, 398, 399, 400, 401, 402, 403, 404, 405, 406, 407,
	408, 409, 410, 411, 412, 413, 414, 415, 416, 417, 418, 419,
	420, 421, 422, 423, 424, 425, 426, 427, 428, 429, 430, 431,
	432, 433, 434, 435, 436, 437, 438, 439, 440, 441, 442, 443,
	444, 445, 446, 447, 448, 449, 450, 451, 452, 453, 454, 455,
	456, 457, 458, 459, 460, 461, 462, 463, 464, 465, 466, 467,
	468, 469, 470, 471, 472, 473, 474, 475, 476, 477, 478, 479,
	480, 481, 482, 483, 484, 485, 486, 487, 488, 489, 490, 491,
	492, 493, 494, 495, 496, 497, 498, 499, 500, 501, 502, 503,
	504, 505, 506, 507, 508, 509, 510, 511, 512, 514, 516, 518,
	520, 522, 524, 526, 528, 530, 532, 534, 536, 538, 540, 542,
	544, 546, 548, 550, 552, 554, 556, 558, 560, 562, 564, 566,
	568, 570, 572, 574, 576, 578, 580, 582, 584, 586, 588, 590,
	592, 594, 596, 598, 600, 602, 604, 606, 608, 610, 612, 614,
	616, 618, 620, 622, 624, 626, 628, 630, 632, 634, 636, 638,
	640, 642, 644, 646, 648, 650, 652, 654, 656, 658, 660, 662,
	664, 666, 668, 670, 672, 674, 676, 678, 680, 682, 684, 686,
	688, 690, 692, 694, 696, 698, 700, 702, 704, 706, 708, 710,
	712, 714, 716, 718, 720, 722, 724, 726, 728, 730, 732, 734,
	736, 738, 740, 742, 744, 746, 748, 750, 752, 754, 756, 758,
	760, 762, 764, 766, 768, 770, 772, 774, 776, 778, 780, 782,
	784, 786, 788, 790, 792, 794, 796, 798, 800, 802, 804, 806,
	808, 810, 812, 814, 816, 818, 820, 822, 824, 826, 828, 830,
	832, 834, 836, 838, 840, 842, 844, 846, 848, 850, 852, 854,
	856, 858, 860, 862, 864, 866, 868, 870, 872, 874, 876, 878,
	880, 882, 884, 886, 888, 890, 892, 894, 896, 898, 900, 902,
	904, 906, 908, 910, 912, 914, 916, 918, 920, 922, 924, 926,
	928, 930, 932, 934, 936, 938, 940, 942, 944, 946, 948, 950,
	952, 954, 956, 958, 960, 962, 964, 966, 968, 970, 972, 974,
	976, 978, 980, 982, 984, 986, 988, 990, 992, 994, 996, 998,
	1000, 1002, 1004, 1006, 1008, 1010, 1012, 1014, 1016, 1018, 1020, 1022,
	1024, 1028, 1032, 1036, 1040, 1044, 1048, 1052, 1056, 1060, 1064, 1068,
	1072, 1076, 1080, 1084, 1088, 1092, 1096, 1100, 1104, 1108, 1112, 1116,
	1120, 1124, 1128, 1132, 1136, 1140, 1144, 1148, 1152, 1156, 1160, 1164,
	1168, 1172, 1176, 1180, 1184, 1188, 1192, 1196, 1200, 1204, 1208, 1212,
	1216, 1220, 1224, 1228, 1232, 1236, 1240, 1244, 1248, 1252, 1256, 1260,
	1264, 1268, 1272, 1276, 1280, 1284, 1288, 1292, 1296, 1300, 1304, 1308,
	1312, 1316, 1320, 1324, 1328, 1332, 1336, 1340, 1344, 1348, 1352, 1356,
	1360, 1364, 1368, 1372, 1376, 1380, 1384, 1388, 1392, 1396, 1400, 1404,
	1408, 1412, 1416, 1420, 1424, 1428, 1432, 1436, 1440, 1444, 1448, 1452,
	1456, 1460, 1464, 1468, 1472, 1476, 1480, 1484, 1488, 1492, 1496, 1500,
	1504, 1508, 1512, 1516, 1520, 1524, 1528, 1532, 1536, 1540, 1544, 1548,
	1552, 1556, 1560, 1564, 1568, 1572, 1576, 1580, 1584, 1588, 1592, 1596,
	1600, 1604, 1608, 1612, 1616, 1620, 1624, 1628, 1632, 1636, 1640, 1644,
	1648, 1652, 1656, 1660, 1664, 1668, 1672, 1676, 1680, 1684, 1688, 1692,
	1696, 1700, 1704, 1708, 1712, 1716, 1720, 1724, 1728, 1732, 1736, 1740,
	1744, 1748, 1752, 1756, 1760, 1764, 1768, 1772, 1776, 1780, 1784, 1788,
	1792, 1796, 1800, 1804, 1808, 1812, 1816, 1820, 1824, 1828, 1832, 1836,
	1840, 1844, 1848, 1852, 1856, 1860, 1864, 1868, 1872, 1876, 1880, 1884,
	1888, 1892, 1896, 1900, 1904, 1908, 1912, 1916, 1920, 1924, 1928, 1932,
	1936, 1940, 1944, 1948, 1952, 1956, 1960, 1964, 1968, 1972, 1976, 1980,
	1984, 1988, 1992, 1996, 2000, 2004, 2008, 2012, 2016, 2020, 2024, 2028,
	2032, 2036, 2040, 2044, 2048, 2056, 2064, 2072, 2080, 2088, 2096, 2104,
	2112, 2120, 2128, 2136, 2144, 2152, 2160, 2168, 2176, 2184, 2192, 2200,
	2208, 2216, 2224, 2232, 2240, 2248, 2256, 2264, 2272, 2280, 2288, 2296,
	2304, 2312, 2320, 2328, 2336, 2344, 2352, 2360, 2368, 2376, 2384, 2392,
	2400, 2408, 2416, 2424, 2432, 2440, 2448, 2456, 2464, 2472, 2480, 2488,
	2496, 2504, 2512, 2520, 2528, 2536, 2544, 2552, 2560, 2568, 2576, 2584,
	2592, 2600, 2608, 2616, 2624, 2632, 2640, 2648, 2656, 2664, 2672, 2680,
	2688, 2696, 2704, 2712, 2720, 2728, 2736, 2744, 2752, 2760, 2768, 2776,
	2784, 2792, 2800, 2808, 2816, 2824, 2832, 2840, 2848, 2856, 2864, 2872,
	2880, 2888, 2896, 2904, 2912, 2920, 2928, 2936, 2944, 2952, 2960, 2968,
	2976, 2984, 2992, 3000, 3008, 3016, 3024, 3032, 3040, 3048, 3056, 3064,
	3072, 3080, 3088, 3096, 3104, 3112, 3120, 3128, 3136, 3144, 3152, 3160,
	3168, 3176, 3184, 3192, 3200, 3208, 3216, 3224, 3232, 3240, 3248, 3256,
	3264, 3272, 3280, 3288, 3296, 3304, 3312, 3320, 3328, 3336, 3344, 3352,
	3360, 3368, 3376, 3384, 3392, 3400, 3408, 3416, 3424, 3432, 3440, 3448,
	3456, 3464, 3472, 3480, 3488, 3496, 3504, 3512, 3520, 3528, 3536, 3544,
	3552, 3560, 3568, 3576, 3584, 3592, 3600, 3608, 3616, 3624, 3632, 3640,
	3648, 3656, 3664, 3672, 3680, 3688, 3696, 3704, 3712, 3720, 3728, 3736,
	3744, 3752, 3760, 3768, 3776, 3784, 3792, 3800, 3808, 3816, 3824, 3832,
	3840, 3848, 3856, 3864, 3872, 3880, 3888, 3896, 3904, 3912, 3920, 3928,
	3936, 3944, 3952, 3960, 3968, 3976, 3984, 3992, 4000, 4008, 4016, 4024,
	4032, 4040, 4048, 4056, 4064, 4072, 4080, 4088, 4096, 4112, 4128, 4144,
	4160, 4176, 4192, 4208, 4224, 4240, 4256, 4272, 4288, 4304, 4320, 4336,
	4352, 4368, 4384, 4400, 4416, 4432, 4448, 4464, 4480, 4496, 4512, 4528,
	4544, 4560, 4576, 4592, 4608, 4624, 4640, 4656, 4672, 4688, 4704, 4720,
	4736, 4752, 4768, 4784, 4800, 4816, 4832, 4848, 4864, 4880, 4896, 4912,
	4928, 4944, 4960, 4976, 4992, 5008, 5024, 5040, 5056, 5072, 5088, 5104,
	5120, 5136, 5152, 5168, 5184, 5200, 5216, 5232, 5248, 5264, 5280, 5296,
	5312, 5328, 5344, 5360, 5376, 5392, 5408, 5424, 5440, 5456, 5472, 5488,
	5504, 5520, 5536, 5552, 5568, 5584, 5600, 5616, 5632, 5648, 5664, 5680,
	5696, 5712, 5728, 5744, 5760, 5776, 5792, 5808, 5824, 5840, 5856, 5872,
	5888, 5904, 5920, 5936, 5952, 5968, 5984, 6000, 6016, 6032, 6048, 6064,
	6080, 6096, 6112, 6128, 6144, 6160, 6176, 6192, 6208, 6224, 6240, 6256,
	6272, 6288, 6304, 6320, 6336, 6352, 6368, 6384, 6400, 6416, 6432, 6448,
	6464, 6480, 6496, 6512, 6528, 6544, 6560, 6576, 6592, 6608, 6624, 6640,
	6656, 6672, 6688, 6704, 6720, 6736, 6752, 6768, 6784, 6800, 6816, 6832,
	6848, 6864, 6880, 6896, 6912, 6928, 6944, 6960, 6976, 6992, 7008, 7024,
	7040, 7056, 7072, 7088, 7104, 7120, 7136, 7152, 7168, 7184, 7200, 7216,
	7232, 7248, 7264, 7280, 7296, 7312, 7328, 7344, 7360, 7376, 7392, 7408,
	7424, 7440, 7456, 7472, 7488, 7504, 7520, 7536, 7552, 7568, 7584, 7600,
	7616, 7632, 7648, 7664, 7680, 7696, 7712, 7728, 7744, 7760, 7776, 7792,
	7808, 7824, 7840, 7856, 7872, 7888, 7904, 7920, 7936, 7952, 7968, 7984,
	8000, 8016, 8032, 8048, 8064, 8080, 8096, 8112, 8128, 8144, 8160, 8176,
	8192, 8224, 8256, 8288, 8320, 8352, 8384, 8416, 8448, 8480, 8512, 8544,
	8576, 8608, 8640, 8672, 8704, 8736, 8768, 8800, 8832, 8864, 8896, 8928,
	8960, 8992, 9024, 9056, 9088, 9120, 9152, 9184, 9216, 9248, 9280, 9312,
	9344, 9376, 9408, 9440, 9472, 9504, 9536, 9568, 9600, 9632, 9664, 9696,
	9728, 9760, 9792, 9824, 9856, 9888, 9920, 9952, 9984, 10016, 10048, 10080,
	10112, 10144, 10176, 10208, 10240, 10272, 10304, 10336, 10368, 10400, 10432, 10464,
	10496, 10528, 10560, 10592, 10624, 10656, 10688, 10720, 10752, 10784, 10816, 10848,
	10880, 10912, 10944, 10976, 11008, 11040, 11072, 11104, 11136, 11168, 11200, 11232,
	11264, 11296, 11328, 11360, 11392, 11424, 11456, 11488, 11520, 11552, 11584, 11616,
	11648, 11680, 11712, 11744, 11776, 11808, 11840, 11872, 11904, 11936, 11968, 12000,
	12032, 12064, 12096, 12128, 12160, 12192, 12224, 12256, 12288, 12320, 12352, 12384,
	12416, 12448, 12480, 12512, 12544, 12576, 12608, 12640, 12672, 12704, 12736, 12768,
	12800, 12832, 12864, 12896, 12928, 12960, 12992, 13024, 13056, 13088, 13120, 13152,
	13184, 13216, 13248, 13280, 13312, 13344, 13376, 13408, 13440, 13472, 13504, 13536,
	13568, 13600, 13632, 13664, 13696, 13728, 13760, 13792, 13824, 13856, 13888, 13920,
	13952, 13984, 14016, 14048, 14080, 14112, 14144, 14176, 14208, 14240, 14272, 14304,
	14336, 14368, 14400, 14432, 14464, 14496, 14528, 14560, 14592, 14624, 14656, 14688,
	14720, 14752, 14784, 14816, 14848, 14880, 14912, 14944, 14976, 15008, 15040, 15072,
	15104, 15136, 15168, 15200, 15232, 15264, 15296, 15328, 15360, 15392, 15424, 15456,
	15488, 15520, 15552, 15584, 15616, 15648, 15680, 15712, 15744, 15776, 15808, 15840,
	15872, 15904, 15936, 15968, 16000, 16032, 16064, 16096, 16128, 16160, 16192, 16224,
	16256, 16288, 16320, 16352, 16384, 16448, 16512, 16576, 16640, 16704, 16768, 16832,
	16896, 16960, 17024, 17088, 17152, 17216, 17280, 17344, 17408, 17472, 17536, 17600,
	17664, 17728, 17792, 17856, 17920, 17984, 18048, 18112, 18176, 18240, 18304, 18368,
	18432, 18496, 18560, 18624, 18688, 18752, 18816, 18880, 18944, 19008, 19072, 19136,
	19200, 19264, 19328, 19392, 19456, 19520, 19584, 19648, 19712, 19776, 19840, 19904,
	19968, 20032, 20096, 20160, 20224, 20288, 20352, 20416, 20480, 20544, 20608, 20672,
	20736, 20800, 20864, 20928, 20992, 21056, 21120, 21184, 21248, 21312, 21376, 21440,
	21504, 21568, 21632, 21696, 21760, 21824, 21888, 21952, 22016, 22080, 22144, 22208,
	22272, 22336, 22400, 22464, 22528, 22592, 22656, 22720, 22784, 22848, 22912, 22976,
	23040, 23104, 23168, 23232, 23296, 23360, 23424, 23488, 23552, 23616, 23680, 23744,
	23808, 23872, 23936, 24000, 24064, 24128, 24192, 24256, 24320, 24384, 24448, 24512,
	24576, 24640, 24704, 24768, 24832, 24896, 24960, 25024, 25088, 25152, 25216, 25280,
	25344, 25408, 25472, 25536, 25600, 25664, 25728, 25792, 25856, 25920, 25984, 26048,
	26112, 26176, 26240, 26304, 26368, 26432, 26496, 26560, 26624, 26688, 26752, 26816,
	26880, 26944, 27008, 27072, 27136, 27200, 27264, 27328, 27392, 27456, 27520, 27584,
	27648, 27712, 27776, 27840, 27904, 27968, 28032, 28096, 28160, 28224, 28288, 28352,
	28416, 28480, 28544, 28608, 28672, 28736, 28800, 28864, 28928, 28992, 29056, 29120,
	29184, 29248, 29312, 29376, 29440, 29504, 29568, 29632, 29696, 29760, 29824, 29888,
	29952, 30016, 30080, 30144, 30208, 30272, 30336, 30400, 30464, 30528, 30592, 30656,
	30720, 30784, 30848, 30912, 30976, 31040, 31104, 31168, 31232, 31296, 31360, 31424,
	31488, 31552, 31616, 31680, 31744, 31808, 31872, 31936, 32000, 32064, 32128, 32192,
	32256, 32320, 32384, 32448, 32512, 32576, 32640, 32704, -32768, -32704, -32640, -32576,
	-32512, -32448, -32384, -32320, -32256, -32192, -32128, -32064, -32000, -31936, -31872, -31808,
	-31744, -31680, -31616, -31552, -31488, -31424, -31360, -31296, -31232, -31168, -31104, -31040,
	-30976, -30912, -30848, -30784, -30720, -30656, -30592, -30528, -30464, -30400, -30336, -30272,
	-30208, -30144, -30080, -30016, -29952, -29888, -29824, -29760, -29696, -29632, -29568, -29504,
	-29440, -29376, -29312, -29248, -29184, -29120, -29056, -28992, -28928, -28864, -28800, -28736,
	-28672, -28608, -28544, -28480, -28416, -28352, -28288, -28224, -28160, -28096, -28032, -27968,
	-27904, -27840, -27776, -27712, -27648, -27584, -27520, -27456, -27392, -27328, -27264, -27200,
	-27136, -27072, -27008, -26944, -26880, -26816, -26752, -26688, -26624, -26560, -26496, -26432,
	-26368, -26304, -26240, -26176, -26112, -26048, -25984, -25920, -25856, -25792, -25728, -25664,
	-25600, -25536, -25472, -25408, -25344, -25280, -25216, -25152, -25088, -25024, -24960, -24896,
	-24832, -24768, -24704, -24640, -24576, -24512, -24448, -24384, -24320, -24256, -24192, -24128,
	-24064, -24000, -23936, -23872, -23808, -23744, -23680, -23616, -23552, -23488, -23424, -23360,
	-23296, -23232, -23168, -23104, -23040, -22976, -22912, -22848, -22784, -22720, -22656, -22592,
	-22528, -22464, -22400, -22336, -22272, -22208, -22144, -22080, -22016, -21952, -21888, -21824,
	-21760, -21696, -21632, -21568, -21504, -21440, -21376, -21312, -21248, -21184, -21120, -21056,
	-20992, -20928, -20864, -20800, -20736, -20672, -20608, -20544, -20480, -20416, -20352, -20288,
	-20224, -20160, -20096, -20032, -19968, -19904, -19840, -19776, -19712, -19648, -19584, -19520,
	-19456, -19392, -19328, -19264, -19200, -19136, -19072, -19008, -18944, -18880, -18816, -18752,
	-18688, -18624, -18560, -18496, -18432, -18368, -18304, -18240, -18176, -18112, -18048, -17984,
	-17920, -17856, -17792, -17728, -17664, -17600, -17536, -17472, -17408, -17344, -17280, -17216,
	-17152, -17088, -17024, -16960, -16896, -16832, -16768, -16704, -16640, -16576, -16512, -16448,
	-16384, -16352, -16320, -16288, -16256, -16224, -16192, -16160, -16128, -16096, -16064, -16032,
	-16000, -15968, -15936, -15904, -15872, -15840, -15808, -15776, -15744, -15712, -15680, -15648,
	-15616, -15584, -15552, -15520, -15488, -15456, -15424, -15392, -15360, -15328, -15296, -15264,
	-15232, -15200, -15168, -15136, -15104, -15072, -15040, -15008, -14976, -14944, -14912, -14880,
	-14848, -14816, -14784, -14752, -14720, -14688, -14656, -14624, -14592, -14560, -14528, -14496,
	-14464, -14432, -14400, -14368, -14336, -14304, -14272, -14240, -14208, -14176, -14144, -14112,
	-14080, -14048, -14016, -13984, -13952, -13920, -13888, -13856, -13824, -13792, -13760, -13728,
	-13696, -13664, -13632, -13600, -13568, -13536, -13504, -13472, -13440, -13408, -13376, -13344,
	-13312, -13280, -13248, -13216, -13184, -13152, -13120, -13088, -13056, -13024, -12992, -12960,
	-12928, -12896, -12864, -12832, -12800, -12768, -12736, -12704, -12672, -12640, -12608, -12576,
	-12544, -12512, -12480, -12448, -12416, -12384, -12352, -12320, -12288, -12256, -12224, -12192,
	-12160, -12128, -12096, -12064, -12032, -12000, -11968, -11936, -11904, -11872, -11840, -11808,
	-11776, -11744, -11712, -11680, -11648, -11616, -11584, -11552, -11520, -11488, -11456, -11424,
	-11392, -11360, -11328, -11296, -11264, -11232, -11200, -11168, -11136, -11104, -11072, -11040,
	-11008, -10976, -10944, -10912, -10880, -10848, -10816, -10784, -10752, -10720, -10688, -10656,
	-10624, -10592, -10560, -10528, -10496, -10464, -10432, -10400, -10368, -10336, -10304, -10272,
	-10240, -10208, -10176, -10144, -10112, -10080, -10048, -10016, -9984, -9952, -9920, -9888,
	-9856, -9824, -9792, -9760, -9728, -9696, -9664, -9632, -9600, -9568, -9536, -9504,
	-9472, -9440, -9408, -9376, -9344, -9312, -9280, -9248, -9216, -9184, -9152, -9120,
	-9088, -9056, -9024, -8992, -8960, -8928, -8896, -8864, -8832, -8800, -8768, -8736,
	-8704, -8672, -8640, -8608, -8576, -8544, -8512, -8480, -8448, -8416, -8384, -8352,
	-8320, -8288, -8256, -8224, -8192, -8176, -8160, -8144, -8128, -8112, -8096, -8080,
	-8064, -8048, -8032, -8016, -8000, -7984, -7968, -7952, -7936, -7920, -7904, -7888,
	-7872, -7856, -7840, -7824, -7808, -7792, -7776, -7760, -7744, -7728, -7712, -7696,
	-7680, -7664, -7648, -7632, -7616, -7600, -7584, -7568, -7552, -7536, -7520, -7504,
	-7488, -7472, -7456, -7440, -7424, -7408, -7392, -7376, -7360, -7344, -7328, -7312,
	-7296, -7280, -7264, -7248, -7232, -7216, -7200, -7184, -7168, -7152, -7136, -7120,
	-7104, -7088, -7072, -7056, -7040, -7024, -7008, -6992, -6976, -6960, -6944, -6928,
	-6912, -6896, -6880, -6864, -6848, -6832, -6816, -6800, -6784, -6768, -6752, -6736,
	-6720, -6704, -6688, -6672, -6656, -6640, -6624, -6608, -6592, -6576, -6560, -6544,
	-6528, -6512, -6496, -6480, -6464, -6448, -6432, -6416, -6400, -6384, -6368, -6352,
	-6336, -6320, -6304, -6288, -6272, -6256, -6240, -6224, -6208, -6192, -6176, -6160,
	-6144, -6128, -6112, -6096, -6080, -6064, -6048, -6032, -6016, -6000, -5984, -5968,
	-5952, -5936, -5920, -5904, -5888, -5872, -5856, -5840, -5824, -5808, -5792, -5776,
	-5760, -5744, -5728, -5712, -5696, -5680, -5664, -5648, -5632, -5616, -5600, -5584,
	-5568, -5552, -5536, -5520, -5504, -5488, -5472, -5456, -5440, -5424, -5408, -5392,
	-5376, -5360, -5344, -5328, -5312, -5296, -5280, -5264, -5248, -5232, -5216, -5200,
	-5184, -5168, -5152, -5136, -5120, -5104, -5088, -5072, -5056, -5040, -5024, -5008,
	-4992, -4976, -4960, -4944, -4928, -4912, -4896, -4880, -4864, -4848, -4832, -4816,
	-4800, -4784, -4768, -4752, -4736, -4720, -4704, -4688, -4672, -4656, -4640, -4624,
	-4608, -4592, -4576, -4560, -4544, -4528, -4512, -4496, -4480, -4464, -4448, -4432,
	-4416, -4400, -4384, -4368, -4352, -4336, -4320, -4304, -4288, -4272, -4256, -4240,
	-4224, -4208, -4192, -4176, -4160, -4144, -4128, -4112, -4096, -4088, -4080, -4072,
	-4064, -4056, -4048, -4040, -4032, -4024, -4016, -4008, -4000, -3992, -3984, -3976,
	-3968, -3960, -3952, -3944, -3936, -3928, -3920, -3912, -3904, -3896, -3888, -3880,
	-3872, -3864, -3856, -3848, -3840, -3832, -3824, -3816, -3808, -3800, -3792, -3784,
	-3776, -3768, -3760, -3752, -3744, -3736, -3728, -3720, -3712, -3704, -3696, -3688,
	-3680, -3672, -3664, -3656, -3648, -3640, -3632, -3624, -3616, -3608, -3600, -3592,
	-3584, -3576, -3568, -3560, -3552, -3544, -3536, -3528, -3520, -3512, -3504, -3496,
	-3488, -3480, -3472, -3464, -3456, -3448, -3440, -3432, -3424, -3416, -3408, -3400,
	-3392, -3384, -3376, -3368, -3360, -3352, -3344, -3336, -3328, -3320, -3312, -3304,
	-3296, -3288, -3280, -3272, -3264, -3256, -3248, -3240, -3232, -3224, -3216, -3208,
	-3200, -3192, -3184, -3176, -3168, -3160, -3152, -3144, -3136, -3128, -3120, -3112,
	-3104, -3096, -3088, -3080, -3072, -3064, -3056, -3048, -3040, -3032, -3024, -3016,
	-3008, -3000, -2992, -2984, -2976, -2968, -2960, -2952, -2944, -2936, -2928, -2920,
	-2912, -2904, -2896, -2888, -2880, -2872, -2864, -2856, -2848, -2840, -2832, -2824,
	-2816, -2808, -2800, -2792, -2784, -2776, -2768, -2760, -2752, -2744, -2736, -2728,
	-2720, -2712, -2704, -2696, -2688, -2680, -2672, -2664, -2656, -2648, -2640, -2632,
	-2624, -2616, -2608, -2600, -2592, -2584, -2576, -2568, -2560, -2552, -2544, -2536,
	-2528, -2520, -2512, -2504, -2496, -2488, -2480, -2472, -2464, -2456, -2448, -2440,
	-2432, -2424, -2416, -2408, -2400, -2392, -2384, -2376, -2368, -2360, -2352, -2344,
	-2336, -2328, -2320, -2312, -2304, -2296, -2288, -2280, -2272, -2264, -2256, -2248,
	-2240, -2232, -2224, -2216, -2208, -2200, -2192, -2184, -2176, -2168, -2160, -2152,
	-2144, -2136, -2128, -2120, -2112, -2104, -2096, -2088, -2080, -2072, -2064, -2056,
	-2048, -2044, -2040, -2036, -2032, -2028, -2024, -2020, -2016, -2012, -2008, -2004,
	-2000, -1996, -1992, -1988, -1984, -1980, -1976, -1972, -1968, -1964, -1960, -1956,
	-1952, -1948, -1944, -1940, -1936, -1932, -1928, -1924, -1920, -1916, -1912, -1908,
	-1904, -1900, -1896, -1892, -1888, -1884, -1880, -1876, -1872, -1868, -1864, -1860,
	-1856, -1852, -1848, -1844, -1840, -1836, -1832, -1828, -1824, -1820, -1816, -1812,
	-1808, -1804, -1800, -1796, -1792, -1788, -1784, -1780, -1776, -1772, -1768, -1764,
	-1760, -1756, -1752, -1748, -1744, -1740, -1736, -1732, -1728, -1724, -1720, -1716,
	-1712, -1708, -1704, -1700, -1696, -1692, -1688, -1684, -1680, -1676, -1672, -1668,
	-1664, -1660, -1656, -1652, -1648, -1644, -1640, -1636, -1632, -1628, -1624, -1620,
	-1616, -1612, -1608, -1604, -1600, -1596, -1592, -1588, -1584, -1580, -1576, -1572,
	-1568, -1564, -1560, -1556, -1552, -1548, -1544, -1540, -1536, -1532, -1528, -1524,
	-1520, -1516, -1512, -1508, -1504, -1500, -1496, -1492, -1488, -1484, -1480, -1476,
	-1472, -1468, -1464, -1460, -1456, -1452, -1448, -1444, -1440, -1436, -1432, -1428,
	-1424, -1420, -1416, -1412, -1408, -1404, -1400, -1396, -1392, -1388, -1384, -1380,
	-1376, -1372, -1368, -1364, -1360, -1356, -1352, -1348, -1344, -1340, -1336, -1332,
	-1328, -1324, -1320, -1316, -1312, -1308, -1304, -1300, -1296, -1292, -1288, -1284,
	-1280, -1276, -1272, -1268, -1264, -1260, -1256, -1252, -1248, -1244, -1240, -1236,
	-1232, -1228, -1224, -1220, -1216, -1212, -1208, -1204, -1200, -1196, -1192, -1188,
	-1184, -1180, -1176, -1172, -1168, -1164, -1160, -1156, -1152, -1148, -1144, -1140,
	-1136, -1132, -1128, -1124, -1120, -1116, -1112, -1108, -1104, -1100, -1096, -1092,
	-1088, -1084, -1080, -1076, -1072, -1068, -1064, -1060, -1056, -1052, -1048, -1044,
	-1040, -1036, -1032, -1028, -1024, -1022, -1020, -1018, -1016, -1014, -1012, -1010,
	-1008, -1006, -1004, -1002, -1000, -998, -996, -994, -992, -990, -988, -986,
	-984, -982, -980, -978, -976, -974, -972, -970, -968, -966, -964, -962,
	-960, -958, -956, -954, -952, -950, -948, -946, -944, -942, -940, -938,
	-936, -934, -932, -930, -928, -926, -924, -922, -920, -918, -916, -914,
	-912, -910, -908, -906, -904, -902, -900, -898, -896, -894, -892, -890,
	-888, -886, -884, -882, -880, -878, -876, -874, -872, -870, -868, -866,
	-864, -862, -860, -858, -856, -854, -852, -850, -848, -846, -844, -842,
	-840, -838, -836, -834, -832, -830, -828, -826, -824, -822, -820, -818,
	-816, -814, -812, -810, -808, -806, -804, -802, -800, -798, -796, -794,
	-792, -790, -788, -786, -784, -782, -780, -778, -776, -774, -772, -770,
	-768, -766, -764, -762, -760, -758, -756, -754, -752, -750, -748, -746,
	-744, -742, -740, -738, -736, -734, -732, -730, -728, -726, -724, -722,
	-720, -718, -716, -714, -712, -710, -708, -706, -704, -702, -700, -698,
	-696, -694, -692, -690, -688, -686, -684, -682, -680, -678, -676, -674,
	-672, -670, -668, -666, -664, -662, -660, -658, -656, -654, -652, -650,
	-648, -646, -644, -642, -640, -638, -636, -634, -632, -630, -628, -626,
	-624, -622, -620, -618, -616, -614, -612, -610, -608, -606, -604, -602,
	-600, -598, -596, -594, -592, -590, -588, -586, -584, -582, -580, -578,
	-576, -574, -572, -570, -568, -566, -564, -562, -560, -558, -556, -554,
	-552, -550, -548, -546, -544, -542, -540, -538, -536, -534, -532, -530,
	-528, -526, -524, -522, -520, -518, -516, -514, -512, -511, -510, -509,
	-508, -507, -506, -505, -504, -503, -502, -501, -500, -499, -498, -497,
	-496, -495, -494, -493, -492, -491, -490, -489, -488, -487, -486, -485,
	-484, -483, -482, -481, -480, -479, -478, -477, -476, -475, -474, -473,
	-472, -471, -470, -469, -468, -467, -466, -465, -464, -463, -462, -461,
	-460, -459, -458, -457, -456, -455, -454, -453, -452, -451, -450, -449,
	-448, -447, -446, -445, -444, -443, -442, -441, -440, -439, -438, -437,
	-436, -435, -434, -433, -432, -431, -430, -429, -428, -427, -426, -425,
	-424, -423, -422, -421, -420, -419, -418, -417, -416, -415, -414, -413,
	-412, -411, -410, -409, -408, -407, -406, -405, -404, -403, -402, -401,
	-400, -399, -398, -397, -396, -395, -394, -393, -392, -391, -390, -389,
	-388, -387, -386, -385, -384, -383, -382, -381, -380, -379, -378, -377,
	-376, -375, -374, -373, -372, -371, -370, -369, -368, -367, -366, -365,
	-364, -363, -362, -361, -360, -359, -358, -357, -356, -355, -354, -353,
	-352, -351, -350, -349, -348, -347, -346, -345, -344, -343, -342, -341,
	-340, -339, -338, -337, -336, -335, -334, -333, -332, -331, -330, -329,
	-328, -327, -326, -325, -324, -323, -322, -321, -320, -319, -318, -317,
	-316, -315, -314, -313, -312, -311, -310, -309, -308, -307, -306, -305,
	-304, -303, -302, -301, -300, -299, -298, -297, -296, -295, -294, -293,
	-292, -291, -290, -289, -288, -287, -286, -285, -284, -283, -282, -281,
	-280, -279, -278, -277, -276, -275, -274, -273, -272, -271, -270, -269,
	-268, -267, -266, -265, -264, -263, -262, -261, -260, -259, -258, -257,
	-256, -255, -254, -253, -252, -251, -250, -249, -248, -247, -246, -245,
	-244, -243, -242, -241, -240, -239, -238, -237, -236, -235, -234, -233,
	-232, -231, -230, -229, -228, -227, -226, -225, -224, -223, -222, -221,
	-220, -219, -218, -217, -216, -215, -214, -213, -212, -211, -210, -209,
	-208, -207, -206, -205, -204, -203, -202, -201, -200, -199, -198, -197,
	-196, -195, -194, -193, -192, -191, -190, -189, -188, -187, -186, -185,
	-184, -183, -182, -181, -180, -179, -178, -177, -176, -175, -174, -173,
	-172, -171, -170, -169, -168, -167, -166, -165, -164, -163, -162, -161,
	-160, -159, -158, -157, -156, -155, -154, -153, -152, -151, -150, -149,
	-148, -147, -146, -145, -144, -143, -142, -141, -140, -139, -138, -137,
	-136, -135, -134, -133, -132, -131, -130, -129, -128, -127, -126, -125,
	-124, -123, -122, -121, -120, -119, -118, -117, -116, -115, -114, -113,
	-112, -111, -110, -109, -108, -107, -106, -105, -104, -103, -102, -101,
	-100, -99, -98, -97, -96, -95, -94, -93, -92, -91, -90, -89,
	-88, -87, -86, -85, -84, -83, -82, -81, -80, -79, -78, -77,
	-76, -75, -74, -73, -72, -71, -70, -69, -68, -67, -66, -65,
	-64, -63, -62, -61, -60, -59, -58, -57, -56, -55, -54, -53,
	-52, -51, -50, -49, -48, -47, -46, -45, -44, -43, -42, -41,
	-40, -39, -38, -37, -36, -35, -34, -33, -32, -31, -30, -29,
	-28, -27, -26, -25, -24, -23, -22, -21, -20, -19, -18, -17,
	-16, -15, -14, -13, -12, -11, -10, -9, -8, -7, -6, -5,
	-4, -3, -2, -1,
}
